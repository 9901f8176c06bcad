package distribution

import (
	"errors"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Component is one wavelength of a spectral distribution with its share of
// the energy. The fractions of a distribution sum to one.
type Component struct {
	Wavelength units.Length
	Fraction   float64
}

// Spectral splits source energy over wavelengths.
type Spectral interface {
	Components() []Component
	Spec() SpectralSpec
}

// LaserLines is a set of discrete lines with relative intensities.
type LaserLines struct {
	components []Component
}

// NewLaserLines normalises the line energies to fractions.
func NewLaserLines(lines ...spectrum.Line) (*LaserLines, error) {
	if len(lines) == 0 {
		return nil, invalid("laser lines", errors.New("no lines"))
	}
	var sum float64
	for _, l := range lines {
		if err := validation.Var(l.Wavelength, "finite,gt=0"); err != nil {
			return nil, invalid("laser line wavelength", err)
		}
		if err := validation.Var(l.Energy, "finite,gte=0"); err != nil {
			return nil, invalid("laser line intensity", err)
		}
		sum += l.Energy.Joules()
	}
	if sum == 0 {
		return nil, invalid("laser lines", errors.New("intensities sum to zero"))
	}
	comps := make([]Component, len(lines))
	for i, l := range lines {
		comps[i] = Component{Wavelength: l.Wavelength, Fraction: l.Energy.Joules() / sum}
	}
	return &LaserLines{components: comps}, nil
}

// NewSingleLine returns a monochromatic distribution.
func NewSingleLine(wavelength units.Length) (*LaserLines, error) {
	return NewLaserLines(spectrum.Line{Wavelength: wavelength, Energy: units.Joule(1)})
}

func (l *LaserLines) Components() []Component {
	return append([]Component(nil), l.components...)
}

func (l *LaserLines) Spec() SpectralSpec {
	lines := make([]spectrum.Line, len(l.components))
	for i, c := range l.components {
		lines[i] = spectrum.Line{Wavelength: c.Wavelength, Energy: units.Joule(c.Fraction)}
	}
	return SpectralSpec{Type: TypeLaserLines, Lines: lines}
}

// Gaussian samples a (super-)Gaussian line shape at Points equally spaced
// wavelengths between Start and End.
type Gaussian struct {
	Start  units.Length `yaml:"start" validate:"finite,gt=0"`
	End    units.Length `yaml:"end" validate:"finite,gtfield=Start"`
	Points int          `yaml:"points" validate:"gte=1"`
	Mu     units.Length `yaml:"mu" validate:"finite,gt=0"`
	FWHM   units.Length `yaml:"fwhm" validate:"finite,gt=0"`
	Power  float64      `yaml:"power" validate:"finite,gt=0"`
}

func NewGaussian(g Gaussian) (*Gaussian, error) {
	if err := validation.Struct(g); err != nil {
		return nil, invalid("gaussian spectrum", err)
	}
	if len(g.Components()) == 0 {
		return nil, invalid("gaussian spectrum", errors.New("line shape vanishes on the sampled range"))
	}
	return &g, nil
}

func (g *Gaussian) Components() []Component {
	sigma := g.FWHM.Meters() / (2 * math.Sqrt(2*math.Pow(math.Ln2, 1/g.Power)))
	step := 0.0
	if g.Points > 1 {
		step = (g.End - g.Start).Meters() / float64(g.Points-1)
	}
	comps := make([]Component, 0, g.Points)
	w := make([]float64, 0, g.Points)
	for i := 0; i < g.Points; i++ {
		wl := g.Start.Meters() + float64(i)*step
		d := (wl - g.Mu.Meters()) / sigma
		v := math.Exp(-math.Pow(0.5*d*d, g.Power))
		if v == 0 {
			continue
		}
		comps = append(comps, Component{Wavelength: units.Meter(wl)})
		w = append(w, v)
	}
	sum := kahanSum(w)
	for i := range comps {
		comps[i].Fraction = w[i] / sum
	}
	return comps
}

func (g *Gaussian) Spec() SpectralSpec {
	return SpectralSpec{
		Type:   TypeGaussian,
		Start:  g.Start,
		End:    g.End,
		Points: g.Points,
		Mu:     g.Mu,
		FWHM:   g.FWHM,
		Power:  g.Power,
	}
}
