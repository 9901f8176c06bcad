package refractive

import (
	"fmt"

	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Spec is the serialisable form of a Model.
type Spec struct {
	Type         string           `yaml:"type" json:"type" validate:"oneof=const conrady sellmeier1 schott"`
	Coefficients []float64        `yaml:"coefficients,flow" json:"coefficients" validate:"dive,finite"`
	Range        *WavelengthRange `yaml:"range,omitempty" json:"range,omitempty"`
}

func (c *Const) Spec() Spec {
	return Spec{Type: TypeConst, Coefficients: []float64{c.N}}
}

func (c *Conrady) Spec() Spec {
	r := c.Range
	return Spec{Type: TypeConrady, Coefficients: []float64{c.N0, c.A, c.B}, Range: &r}
}

func (s *Sellmeier1) Spec() Spec {
	r := s.Range
	return Spec{Type: TypeSellmeier1, Coefficients: []float64{s.K1, s.K2, s.K3, s.L1, s.L2, s.L3}, Range: &r}
}

func (s *Schott) Spec() Spec {
	r := s.Range
	return Spec{Type: TypeSchott, Coefficients: []float64{s.A0, s.A1, s.A2, s.A3, s.A4, s.A5}, Range: &r}
}

var coefficientCount = map[string]int{
	TypeConst:      1,
	TypeConrady:    3,
	TypeSellmeier1: 6,
	TypeSchott:     6,
}

// Model rebuilds and validates the model described by the spec.
func (s Spec) Model() (Model, error) {
	want, ok := coefficientCount[s.Type]
	if !ok {
		return nil, fmt.Errorf("%q: %w", s.Type, ErrUnknownModel)
	}
	if err := validation.Struct(s); err != nil {
		return nil, err
	}
	if len(s.Coefficients) != want {
		return nil, fmt.Errorf("%s model needs %d coefficients, got %d: %w",
			s.Type, want, len(s.Coefficients), validation.ErrInvalid)
	}
	if s.Type != TypeConst && s.Range == nil {
		return nil, fmt.Errorf("%s model needs a wavelength range: %w", s.Type, validation.ErrInvalid)
	}
	c := s.Coefficients
	switch s.Type {
	case TypeConst:
		return NewConst(c[0])
	case TypeConrady:
		return NewConrady(c[0], c[1], c[2], *s.Range)
	case TypeSellmeier1:
		return NewSellmeier1(c[0], c[1], c[2], c[3], c[4], c[5], *s.Range)
	default:
		return NewSchott(c[0], c[1], c[2], c[3], c[4], c[5], *s.Range)
	}
}
