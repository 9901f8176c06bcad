package spectrum

import (
	"fmt"

	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Visible returns an empty spectrum from 380 nm to 750 nm at 0.1 nm.
func Visible() *Spectrum {
	s, _ := New(units.Nanometer(380), units.Nanometer(750), units.Nanometer(0.1))
	return s
}

// NearInfrared returns an empty spectrum from 800 nm to 2500 nm at 0.1 nm.
func NearInfrared() *Spectrum {
	s, _ := New(units.Nanometer(800), units.Nanometer(2500), units.Nanometer(0.1))
	return s
}

// HeNe returns a visible spectrum with a single line at 632.816 nm.
func HeNe(e units.Energy) (*Spectrum, error) {
	s := Visible()
	if err := s.AddSinglePeak(units.Nanometer(632.816), e); err != nil {
		return nil, err
	}
	return s, nil
}

// NdGlass returns a near infrared spectrum with a 0.5 nm wide Lorentzian
// line at 1054 nm.
func NdGlass(e units.Energy) (*Spectrum, error) {
	s := NearInfrared()
	if err := s.AddLorentzianPeak(units.Nanometer(1054), units.Nanometer(0.5), e); err != nil {
		return nil, err
	}
	return s, nil
}

// ShortPass returns an ideal step transmission: 1 below cutOff, 0 above.
// The edge snaps to the bin grid.
func ShortPass(start, end, resolution, cutOff units.Length) (*Spectrum, error) {
	return step(start, end, resolution, cutOff, true)
}

// LongPass returns an ideal step transmission: 0 below cutOff, 1 above.
func LongPass(start, end, resolution, cutOff units.Length) (*Spectrum, error) {
	return step(start, end, resolution, cutOff, false)
}

func step(start, end, resolution, cutOff units.Length, short bool) (*Spectrum, error) {
	if cutOff < start || cutOff >= end {
		return nil, fmt.Errorf("cut-off %s outside %s..%s: %w", cutOff, start, end, ErrOutOfRange)
	}
	s, err := New(start, end, resolution)
	if err != nil {
		return nil, err
	}
	c := cutOff.Micrometers()
	for i, l := range s.lambdas {
		pass := l > c
		if short {
			pass = l < c
		}
		if pass {
			s.values[i] = 1
		}
	}
	return s, nil
}
