package distribution

import (
	"fmt"

	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Distribution types as they appear in documents.
const (
	TypeHexapolar          = "hexapolar"
	TypeHexagonalTiling    = "hexagonal_tiling"
	TypeFibonacciRectangle = "fibonacci_rectangle"
	TypeFibonacciEllipse   = "fibonacci_ellipse"
	TypeGrid               = "grid"
	TypeRandom             = "random"
	TypeSobol              = "sobol"
	TypeUniform            = "uniform"
	TypeGaussian           = "gaussian"
	TypeGaussianFluence    = "gaussian_fluence"
	TypeLaserLines         = "laser_lines"
)

// PositionSpec is the serialisable form of a Position. Fibonacci ellipses
// store their radii in SideX and SideY.
type PositionSpec struct {
	Type   string       `yaml:"type" json:"type"`
	Radius units.Length `yaml:"radius,omitempty" json:"radius,omitempty"`
	Rings  int          `yaml:"rings,omitempty" json:"rings,omitempty"`
	SideX  units.Length `yaml:"side_x,omitempty" json:"side_x,omitempty"`
	SideY  units.Length `yaml:"side_y,omitempty" json:"side_y,omitempty"`
	Count  int          `yaml:"count,omitempty" json:"count,omitempty"`
	NX     int          `yaml:"nx,omitempty" json:"nx,omitempty"`
	NY     int          `yaml:"ny,omitempty" json:"ny,omitempty"`
	Seed   uint64       `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Position builds the distribution described by the spec.
func (s PositionSpec) Position() (Position, error) {
	switch s.Type {
	case TypeHexapolar:
		return asPosition(NewHexapolar(s.Radius, s.Rings))
	case TypeHexagonalTiling:
		return asPosition(NewHexagonalTiling(s.Radius, s.Rings))
	case TypeFibonacciRectangle:
		return asPosition(NewFibonacciRectangle(s.SideX, s.SideY, s.Count))
	case TypeFibonacciEllipse:
		return asPosition(NewFibonacciEllipse(s.SideX, s.SideY, s.Count))
	case TypeGrid:
		return asPosition(NewGrid(s.SideX, s.SideY, s.NX, s.NY))
	case TypeRandom:
		return asPosition(NewRandom(s.SideX, s.SideY, s.Count, s.Seed))
	case TypeSobol:
		return asPosition(NewSobol(s.SideX, s.SideY, s.Count))
	}
	return nil, fmt.Errorf("position %q: %w", s.Type, ErrUnknownDistribution)
}

// EnergySpec is the serialisable form of an Energy distribution.
type EnergySpec struct {
	Type        string       `yaml:"type" json:"type"`
	Total       units.Energy `yaml:"total" json:"total"`
	MuX         units.Length `yaml:"mu_x,omitempty" json:"mu_x,omitempty"`
	MuY         units.Length `yaml:"mu_y,omitempty" json:"mu_y,omitempty"`
	SigmaX      units.Length `yaml:"sigma_x,omitempty" json:"sigma_x,omitempty"`
	SigmaY      units.Length `yaml:"sigma_y,omitempty" json:"sigma_y,omitempty"`
	Power       float64      `yaml:"power,omitempty" json:"power,omitempty"`
	Theta       units.Angle  `yaml:"theta,omitempty" json:"theta,omitempty"`
	Rectangular bool         `yaml:"rectangular,omitempty" json:"rectangular,omitempty"`
}

// Energy builds the distribution described by the spec.
func (s EnergySpec) Energy() (Energy, error) {
	switch s.Type {
	case TypeUniform:
		return asEnergy(NewUniform(s.Total))
	case TypeGaussian:
		return asEnergy(NewGaussian2D(Gaussian2D{
			TotalEnergy: s.Total,
			MuX:         s.MuX,
			MuY:         s.MuY,
			SigmaX:      s.SigmaX,
			SigmaY:      s.SigmaY,
			Power:       s.Power,
			Theta:       s.Theta,
			Rectangular: s.Rectangular,
		}))
	case TypeGaussianFluence:
		return asEnergy(NewGaussianFluence(GaussianFluence{
			TotalEnergy: s.Total,
			MuX:         s.MuX,
			MuY:         s.MuY,
			SigmaX:      s.SigmaX,
			SigmaY:      s.SigmaY,
			Theta:       s.Theta,
		}))
	}
	return nil, fmt.Errorf("energy %q: %w", s.Type, ErrUnknownDistribution)
}

// SpectralSpec is the serialisable form of a Spectral distribution.
type SpectralSpec struct {
	Type   string          `yaml:"type" json:"type"`
	Lines  []spectrum.Line `yaml:"lines,omitempty" json:"lines,omitempty"`
	Start  units.Length    `yaml:"start,omitempty" json:"start,omitempty"`
	End    units.Length    `yaml:"end,omitempty" json:"end,omitempty"`
	Points int             `yaml:"points,omitempty" json:"points,omitempty"`
	Mu     units.Length    `yaml:"mu,omitempty" json:"mu,omitempty"`
	FWHM   units.Length    `yaml:"fwhm,omitempty" json:"fwhm,omitempty"`
	Power  float64         `yaml:"power,omitempty" json:"power,omitempty"`
}

// Spectral builds the distribution described by the spec.
func (s SpectralSpec) Spectral() (Spectral, error) {
	switch s.Type {
	case TypeLaserLines:
		return asSpectral(NewLaserLines(s.Lines...))
	case TypeGaussian:
		return asSpectral(NewGaussian(Gaussian{Start: s.Start, End: s.End, Points: s.Points, Mu: s.Mu, FWHM: s.FWHM, Power: s.Power}))
	}
	return nil, fmt.Errorf("spectral %q: %w", s.Type, ErrUnknownDistribution)
}

// The as* helpers keep typed nil pointers out of the interface results.

func asPosition[T Position](p T, err error) (Position, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

func asEnergy[T Energy](e T, err error) (Energy, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func asSpectral[T Spectral](s T, err error) (Spectral, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
