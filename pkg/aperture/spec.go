package aperture

import (
	"fmt"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Aperture types as they appear in documents.
const (
	TypeNone      = "none"
	TypeCircle    = "circle"
	TypeRectangle = "rectangle"
	TypePolygon   = "polygon"
	TypeGaussian  = "gaussian"
	TypeStack     = "stack"
)

// Spec is the serialisable form of an Aperture. Lengths are in metres.
type Spec struct {
	Type    string       `yaml:"type" json:"type"`
	Kind    string       `yaml:"kind,omitempty" json:"kind,omitempty"`
	Radius  units.Length `yaml:"radius,omitempty" json:"radius,omitempty"`
	Width   units.Length `yaml:"width,omitempty" json:"width,omitempty"`
	Height  units.Length `yaml:"height,omitempty" json:"height,omitempty"`
	SigmaX  units.Length `yaml:"sigma_x,omitempty" json:"sigma_x,omitempty"`
	SigmaY  units.Length `yaml:"sigma_y,omitempty" json:"sigma_y,omitempty"`
	Center  [2]float64   `yaml:"center,flow,omitempty" json:"center,omitempty"`
	Points  [][2]float64 `yaml:"points,flow,omitempty" json:"points,omitempty"`
	Members []Spec       `yaml:"members,omitempty" json:"members,omitempty"`
}

func kindName(k Kind) string {
	if k == Obstruction {
		return k.String()
	}
	return ""
}

func point(p geom.Point2) [2]float64 { return [2]float64{p.X, p.Y} }

func (c *Circle) Spec() Spec {
	return Spec{Type: TypeCircle, Kind: kindName(c.Kind), Radius: c.Radius, Center: point(c.Center)}
}

func (r *Rectangle) Spec() Spec {
	return Spec{Type: TypeRectangle, Kind: kindName(r.Kind), Width: r.Width, Height: r.Height, Center: point(r.Center)}
}

func (g *Polygon) Spec() Spec {
	pts := make([][2]float64, len(g.Points))
	for i, p := range g.Points {
		pts[i] = point(p)
	}
	return Spec{Type: TypePolygon, Kind: kindName(g.Kind), Points: pts}
}

func (g *Gaussian) Spec() Spec {
	return Spec{Type: TypeGaussian, Kind: kindName(g.Kind), SigmaX: g.SigmaX, SigmaY: g.SigmaY, Center: point(g.Center)}
}

func (s *Stack) Spec() Spec {
	members := make([]Spec, len(s.Members))
	for i, m := range s.Members {
		members[i] = m.Spec()
	}
	return Spec{Type: TypeStack, Kind: kindName(s.Kind), Members: members}
}

// Aperture rebuilds the aperture described by the spec.
func (s Spec) Aperture() (Aperture, error) {
	var kind Kind
	switch s.Kind {
	case "", "hole":
	case "obstruction":
		kind = Obstruction
	default:
		return nil, fmt.Errorf("aperture kind %q: %w", s.Kind, ErrInvalidAperture)
	}
	center := geom.Point2{X: s.Center[0], Y: s.Center[1]}

	switch s.Type {
	case TypeNone, "":
		return None{}, nil
	case TypeCircle:
		c, err := NewCircle(s.Radius, center)
		if err != nil {
			return nil, err
		}
		c.Kind = kind
		return c, nil
	case TypeRectangle:
		r, err := NewRectangle(s.Width, s.Height, center)
		if err != nil {
			return nil, err
		}
		r.Kind = kind
		return r, nil
	case TypePolygon:
		pts := make([]geom.Point2, len(s.Points))
		for i, p := range s.Points {
			pts[i] = geom.Point2{X: p[0], Y: p[1]}
		}
		g, err := NewPolygon(pts)
		if err != nil {
			return nil, err
		}
		g.Kind = kind
		return g, nil
	case TypeGaussian:
		g, err := NewGaussian(s.SigmaX, s.SigmaY, center)
		if err != nil {
			return nil, err
		}
		g.Kind = kind
		return g, nil
	case TypeStack:
		members := make([]Aperture, 0, len(s.Members))
		for i, m := range s.Members {
			a, err := m.Aperture()
			if err != nil {
				return nil, fmt.Errorf("stack member %d: %w", i, err)
			}
			members = append(members, a)
		}
		st := NewStack(members...)
		st.Kind = kind
		return st, nil
	}
	return nil, fmt.Errorf("%q: %w", s.Type, ErrUnknownAperture)
}
