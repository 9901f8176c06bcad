// Package coating models the reflectivity of optical surface coatings.
//
// A coating splits the energy of an incoming ray into a reflected part E·R
// and a transmitted part E·(1−R). Polarization is not tracked: the Fresnel
// model uses the s-polarized reflectance only.
package coating

import (
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

var (
	// ErrInvalidReflectivity is returned for reflectivities outside [0, 1]
	// or non-finite values.
	ErrInvalidReflectivity = errors.New("reflectivity must be finite and within [0, 1]")
	// ErrInvalidMedium is returned for non-finite or non-positive indices.
	ErrInvalidMedium = errors.New("invalid refractive index")
	// ErrDegenerate is returned for zero direction or normal vectors.
	ErrDegenerate = errors.New("degenerate direction or normal")
	// ErrUnknownCoating is returned when decoding an unknown coating type.
	ErrUnknownCoating = errors.New("unknown coating type")
)

// Coating types as they appear in documents.
const (
	TypeIdealAR   = "ideal_ar"
	TypeConstantR = "constant_r"
	TypeFresnel   = "fresnel"
)

// Coating computes the fraction of energy reflected at an interface between
// a medium of index n1 (incoming side) and n2.
type Coating interface {
	Reflectivity(dir, normal geom.Vec3, n1, n2 float64) (float64, error)
	Type() string
	Spec() Spec
}

func checkInputs(dir, normal geom.Vec3, n1, n2 float64) error {
	if dir.Length() == 0 || normal.Length() == 0 || !dir.IsFinite() || !normal.IsFinite() {
		return ErrDegenerate
	}
	for _, n := range [2]float64{n1, n2} {
		if n <= 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("n = %g: %w", n, ErrInvalidMedium)
		}
	}
	return nil
}

// IdealAR is a perfect anti-reflection coating.
type IdealAR struct{}

func (IdealAR) Reflectivity(dir, normal geom.Vec3, n1, n2 float64) (float64, error) {
	if err := checkInputs(dir, normal, n1, n2); err != nil {
		return 0, err
	}
	return 0, nil
}

func (IdealAR) Type() string { return TypeIdealAR }
func (IdealAR) Spec() Spec   { return Spec{Type: TypeIdealAR} }

// ConstantR reflects a fixed fraction regardless of angle and wavelength.
type ConstantR struct {
	r float64
}

// NewConstantR returns a constant reflectivity coating. r must be finite
// and within [0, 1].
func NewConstantR(r float64) (*ConstantR, error) {
	if err := validation.Var(r, "finite,probability"); err != nil {
		return nil, fmt.Errorf("reflectivity %v: %w", r, ErrInvalidReflectivity)
	}
	return &ConstantR{r: r}, nil
}

// Value returns the configured reflectivity.
func (c *ConstantR) Value() float64 { return c.r }

func (c *ConstantR) Reflectivity(dir, normal geom.Vec3, n1, n2 float64) (float64, error) {
	if err := checkInputs(dir, normal, n1, n2); err != nil {
		return 0, err
	}
	return c.r, nil
}

func (c *ConstantR) Type() string { return TypeConstantR }
func (c *ConstantR) Spec() Spec   { return Spec{Type: TypeConstantR, Reflectivity: c.r} }

// Fresnel computes the s-polarized Fresnel reflectance of an uncoated
// interface. Total internal reflection yields 1.
type Fresnel struct{}

func (Fresnel) Reflectivity(dir, normal geom.Vec3, n1, n2 float64) (float64, error) {
	if err := checkInputs(dir, normal, n1, n2); err != nil {
		return 0, err
	}
	cosA := math.Abs(dir.Normalize().Dot(normal.Normalize()))
	cosA = min(cosA, 1)
	sinA := math.Sqrt(1 - cosA*cosA)
	sinB := n1 * sinA / n2
	if sinB >= 1 {
		return 1, nil
	}
	cosB := math.Sqrt(1 - sinB*sinB)
	rs := (n1*cosA - n2*cosB) / (n1*cosA + n2*cosB)
	return rs * rs, nil
}

func (Fresnel) Type() string { return TypeFresnel }
func (Fresnel) Spec() Spec   { return Spec{Type: TypeFresnel} }

// Spec is the serialisable form of a Coating.
type Spec struct {
	Type         string  `yaml:"type" json:"type"`
	Reflectivity float64 `yaml:"reflectivity,omitempty" json:"reflectivity,omitempty" validate:"finite,probability"`
}

// Coating rebuilds the coating described by the spec.
func (s Spec) Coating() (Coating, error) {
	if err := validation.Struct(s); err != nil {
		return nil, err
	}
	switch s.Type {
	case TypeIdealAR:
		return IdealAR{}, nil
	case TypeConstantR:
		return NewConstantR(s.Reflectivity)
	case TypeFresnel:
		return Fresnel{}, nil
	}
	return nil, fmt.Errorf("%q: %w", s.Type, ErrUnknownCoating)
}

// Split returns the reflected and transmitted energy fractions of e.
func Split(e, r float64) (reflected, transmitted float64) {
	return e * r, e * (1 - r)
}
