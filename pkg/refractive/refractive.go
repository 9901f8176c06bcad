// Package refractive provides dispersion models for optical materials.
//
// Every model evaluates the refractive index at a vacuum wavelength. The
// dispersion formulas take the wavelength in micrometres, as glass catalogues
// do.
package refractive

import (
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

var (
	// ErrOutOfRange is returned for wavelengths outside the validity range
	// of a model.
	ErrOutOfRange = errors.New("wavelength outside model range")
	// ErrUnphysical is returned when a model evaluates below 1 or to a
	// non-finite value.
	ErrUnphysical = errors.New("refractive index below 1 or not finite")
	// ErrUnknownModel is returned when decoding an unknown model type.
	ErrUnknownModel = errors.New("unknown refractive index model")
)

// Model types as they appear in documents.
const (
	TypeConst      = "const"
	TypeConrady    = "conrady"
	TypeSellmeier1 = "sellmeier1"
	TypeSchott     = "schott"
)

// Model computes the refractive index of a material.
type Model interface {
	// Index returns the refractive index at the given vacuum wavelength.
	Index(wavelength units.Length) (float64, error)
	Type() string
	Spec() Spec
}

// WavelengthRange is the half-open validity range [Min, Max).
type WavelengthRange struct {
	Min units.Length `yaml:"min" json:"min" validate:"finite,gte=0"`
	Max units.Length `yaml:"max" json:"max" validate:"finite,gtfield=Min"`
}

func (r WavelengthRange) check(wavelength units.Length) error {
	if wavelength < r.Min || wavelength >= r.Max {
		return fmt.Errorf("%s not in [%s, %s): %w", wavelength, r.Min, r.Max, ErrOutOfRange)
	}
	return nil
}

func physical(n float64) (float64, error) {
	if n < 1 || !units.IsFinite(n) {
		return 0, fmt.Errorf("n = %g: %w", n, ErrUnphysical)
	}
	return n, nil
}

// Const is a wavelength independent index.
type Const struct {
	N float64 `validate:"finite,gte=1"`
}

// NewConst validates and returns a constant index model.
func NewConst(n float64) (*Const, error) {
	c := &Const{N: n}
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Vacuum returns the index model of vacuum.
func Vacuum() *Const {
	return &Const{N: 1}
}

func (c *Const) Index(units.Length) (float64, error) { return physical(c.N) }
func (c *Const) Type() string                        { return TypeConst }

// Conrady implements n = n0 + A/λ + B/λ^3.5.
type Conrady struct {
	N0    float64 `validate:"finite"`
	A     float64 `validate:"finite"`
	B     float64 `validate:"finite"`
	Range WavelengthRange
}

// NewConrady validates and returns a Conrady model.
func NewConrady(n0, a, b float64, r WavelengthRange) (*Conrady, error) {
	c := &Conrady{N0: n0, A: a, B: b, Range: r}
	if err := validation.Struct(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conrady) Index(wavelength units.Length) (float64, error) {
	if err := c.Range.check(wavelength); err != nil {
		return 0, err
	}
	l := wavelength.Micrometers()
	return physical(c.N0 + c.A/l + c.B/math.Pow(l, 3.5))
}

func (c *Conrady) Type() string { return TypeConrady }

// Sellmeier1 implements n² = 1 + Σ Kᵢλ²/(λ² − Lᵢ).
type Sellmeier1 struct {
	K1, K2, K3 float64 `validate:"finite"`
	L1, L2, L3 float64 `validate:"finite,gte=0"`
	Range      WavelengthRange
}

// NewSellmeier1 validates and returns a Sellmeier model.
func NewSellmeier1(k1, k2, k3, l1, l2, l3 float64, r WavelengthRange) (*Sellmeier1, error) {
	s := &Sellmeier1{K1: k1, K2: k2, K3: k3, L1: l1, L2: l2, L3: l3, Range: r}
	if err := validation.Struct(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sellmeier1) Index(wavelength units.Length) (float64, error) {
	if err := s.Range.check(wavelength); err != nil {
		return 0, err
	}
	l := wavelength.Micrometers()
	lsq := l * l
	return physical(math.Sqrt(1 +
		s.K1*lsq/(lsq-s.L1) +
		s.K2*lsq/(lsq-s.L2) +
		s.K3*lsq/(lsq-s.L3)))
}

func (s *Sellmeier1) Type() string { return TypeSellmeier1 }

// Schott implements n² = A0 + A1λ² + A2λ⁻² + A3λ⁻⁴ + A4λ⁻⁶ + A5λ⁻⁸.
type Schott struct {
	A0, A1, A2, A3, A4, A5 float64 `validate:"finite"`
	Range                  WavelengthRange
}

// NewSchott validates and returns a Schott model.
func NewSchott(a0, a1, a2, a3, a4, a5 float64, r WavelengthRange) (*Schott, error) {
	s := &Schott{A0: a0, A1: a1, A2: a2, A3: a3, A4: a4, A5: a5, Range: r}
	if err := validation.Struct(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schott) Index(wavelength units.Length) (float64, error) {
	if err := s.Range.check(wavelength); err != nil {
		return 0, err
	}
	l := wavelength.Micrometers()
	n2 := math.FMA(s.A5, math.Pow(l, -8),
		math.FMA(s.A4, math.Pow(l, -6),
			math.FMA(s.A3, math.Pow(l, -4),
				math.FMA(s.A2, math.Pow(l, -2),
					math.FMA(s.A1, l*l, s.A0)))))
	return physical(math.Sqrt(n2))
}

func (s *Schott) Type() string { return TypeSchott }
