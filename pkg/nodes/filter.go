package nodes

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/properties"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Transmission kinds of filters and beam splitters.
const (
	TransmissionConstant = "constant"
	TransmissionSpectrum = "spectrum"
)

// Transmission is a wavelength dependent fraction in [0, 1]: either a
// constant or a transmission spectrum.
type Transmission struct {
	Type     string             `yaml:"type" json:"type" validate:"oneof=constant spectrum"`
	Value    float64            `yaml:"value,omitempty" json:"value,omitempty" validate:"finite,probability"`
	Spectrum *spectrum.Spectrum `yaml:"spectrum,omitempty" json:"spectrum,omitempty"`
}

// ConstantTransmission returns a wavelength independent transmission.
func ConstantTransmission(v float64) Transmission {
	return Transmission{Type: TransmissionConstant, Value: v}
}

// SpectrumTransmission returns a transmission given by a spectrum.
func SpectrumTransmission(s *spectrum.Spectrum) Transmission {
	return Transmission{Type: TransmissionSpectrum, Spectrum: s}
}

func (t Transmission) validate() error {
	if err := validation.Struct(t); err != nil {
		return err
	}
	if t.Type == TransmissionSpectrum {
		if t.Spectrum == nil || t.Spectrum.Len() < 2 {
			return errors.New("transmission spectrum is missing")
		}
		if !t.Spectrum.IsTransmission() {
			return errors.New("transmission spectrum values must lie in [0, 1]")
		}
	}
	return nil
}

// At returns the transmission at a wavelength. A transmission spectrum is
// zero outside its range.
func (t Transmission) At(wavelength units.Length) (float64, error) {
	if t.Type != TransmissionSpectrum {
		return t.Value, nil
	}
	v, _ := t.Spectrum.Value(wavelength)
	return v, nil
}

// Apply keeps the transmitted part in s and returns the rest.
func (t Transmission) Apply(s *spectrum.Spectrum) (*spectrum.Spectrum, error) {
	if t.Type == TransmissionSpectrum {
		return s.SplitBy(t.Spectrum), nil
	}
	rest := s.Clone()
	if err := rest.ScaleVertical(1 - t.Value); err != nil {
		return nil, err
	}
	if err := s.ScaleVertical(t.Value); err != nil {
		return nil, err
	}
	return rest, nil
}

func transmissionCheck(v any) error {
	return v.(Transmission).validate()
}

// PropTransmission is the property holding a filter's transmission.
const PropTransmission = "transmission"

// IdealFilter transmits a fixed fraction of the light, absorbing the rest.
type IdealFilter struct {
	optic.Base
}

// NewIdealFilter returns a filter transmitting everything.
func NewIdealFilter(name string) *IdealFilter {
	return NewIdealFilterWith(name, ConstantTransmission(1))
}

// NewIdealFilterWith returns a filter with the given transmission.
func NewIdealFilterWith(name string, t Transmission) *IdealFilter {
	n := &IdealFilter{Base: optic.NewBase(TypeIdealFilter, name)}
	n.MustPort(optic.PortIn, optic.Input, nil)
	n.MustPort(optic.PortOut, optic.Output, nil)
	mustCreate(n.Properties().Create(PropTransmission, "transmitted fraction", ConstantTransmission(1),
		properties.WithCheck(transmissionCheck)))
	if err := n.Properties().Set(PropTransmission, t); err != nil {
		panic(fmt.Errorf("ideal filter: %w", err))
	}
	return n
}

func (n *IdealFilter) transmission() Transmission {
	t, _ := properties.Get[Transmission](n.Properties(), PropTransmission)
	return t
}

func (n *IdealFilter) AnalyzeEnergy(in optic.LightResult, d optic.Direction) (optic.LightResult, error) {
	out, err := passEnergy(n, in, d)
	if err != nil {
		return nil, err
	}
	for port, data := range out {
		s, _ := data.Spectrum()
		s = s.Clone()
		if _, err := n.transmission().Apply(s); err != nil {
			return nil, err
		}
		out[port] = optic.EnergyData(s)
	}
	return out, nil
}

func (n *IdealFilter) transmit(b *ray.Bundle) error {
	t := n.transmission()
	return b.Transmit(t.At)
}

func (n *IdealFilter) AnalyzeRayTrace(in optic.LightResult, _ optic.RayTraceConfig, d optic.Direction) (optic.LightResult, error) {
	return thinRays(n, in, d, n.transmit)
}

func (n *IdealFilter) AnalyzeGhostFocus(in optic.LightResult, _ optic.GhostFocusConfig, d optic.Direction, _ int) (optic.LightResult, error) {
	return thinGhosts(n, in, d, n.transmit)
}
