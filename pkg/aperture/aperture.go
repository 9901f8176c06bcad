// Package aperture defines the transmission of a surface as a function of
// the transverse hit position.
//
// Binary apertures transmit either fully or not at all. A Gaussian aperture
// scales the transmission smoothly. A Stack multiplies its members. Every
// aperture can be turned into an obstruction, which inverts its
// transmission.
package aperture

import (
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

var (
	// ErrInvalidAperture is returned for non-positive or non-finite sizes.
	ErrInvalidAperture = errors.New("invalid aperture parameters")
	// ErrUnknownAperture is returned when decoding an unknown aperture type.
	ErrUnknownAperture = errors.New("unknown aperture type")
)

// Kind selects whether the shape is a hole or an obstruction.
type Kind int

const (
	// Hole transmits inside the shape.
	Hole Kind = iota
	// Obstruction blocks inside the shape.
	Obstruction
)

func (k Kind) String() string {
	if k == Obstruction {
		return "obstruction"
	}
	return "hole"
}

func (k Kind) apply(t float64) float64 {
	if k == Obstruction {
		return 1 - t
	}
	return t
}

// Aperture returns the transmission factor in [0, 1] at a transverse point
// in the local surface frame (metres).
type Aperture interface {
	Apodize(p geom.Point2) float64
	Spec() Spec
}

// IsBlocked reports whether the aperture fully blocks the point.
func IsBlocked(a Aperture, p geom.Point2) bool {
	return a == nil || a.Apodize(p) <= 0
}

// None transmits everywhere.
type None struct{}

func (None) Apodize(geom.Point2) float64 { return 1 }
func (None) Spec() Spec                  { return Spec{Type: TypeNone} }

// Circle is a binary circular aperture.
type Circle struct {
	Radius units.Length
	Center geom.Point2
	Kind   Kind
}

// NewCircle returns a circular hole.
func NewCircle(radius units.Length, center geom.Point2) (*Circle, error) {
	if radius <= 0 || !radius.IsFinite() || !center.IsFinite() {
		return nil, fmt.Errorf("circle radius %s: %w", radius, ErrInvalidAperture)
	}
	return &Circle{Radius: radius, Center: center}, nil
}

func (c *Circle) Apodize(p geom.Point2) float64 {
	t := 0.0
	if p.Sub(c.Center).Norm() <= c.Radius.Meters() {
		t = 1
	}
	return c.Kind.apply(t)
}

// Rectangle is a binary rectangular aperture aligned with the local axes.
type Rectangle struct {
	Width, Height units.Length
	Center        geom.Point2
	Kind          Kind
}

// NewRectangle returns a rectangular hole.
func NewRectangle(width, height units.Length, center geom.Point2) (*Rectangle, error) {
	if width <= 0 || height <= 0 || !width.IsFinite() || !height.IsFinite() || !center.IsFinite() {
		return nil, fmt.Errorf("rectangle %s x %s: %w", width, height, ErrInvalidAperture)
	}
	return &Rectangle{Width: width, Height: height, Center: center}, nil
}

func (r *Rectangle) Apodize(p geom.Point2) float64 {
	d := p.Sub(r.Center)
	t := 0.0
	if math.Abs(d.X) <= r.Width.Meters()/2 && math.Abs(d.Y) <= r.Height.Meters()/2 {
		t = 1
	}
	return r.Kind.apply(t)
}

// Polygon is a binary aperture bounded by a closed polygon.
type Polygon struct {
	Points []geom.Point2
	Kind   Kind
}

// NewPolygon returns a polygonal hole. At least three finite vertices are
// needed; the polygon is closed implicitly.
func NewPolygon(points []geom.Point2) (*Polygon, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("polygon with %d vertices: %w", len(points), ErrInvalidAperture)
	}
	for i, p := range points {
		if !p.IsFinite() {
			return nil, fmt.Errorf("polygon vertex %d not finite: %w", i, ErrInvalidAperture)
		}
	}
	return &Polygon{Points: append([]geom.Point2(nil), points...)}, nil
}

func (g *Polygon) Apodize(p geom.Point2) float64 {
	t := 0.0
	if g.contains(p) {
		t = 1
	}
	return g.Kind.apply(t)
}

// contains uses the even-odd crossing rule.
func (g *Polygon) contains(p geom.Point2) bool {
	inside := false
	n := len(g.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := g.Points[i], g.Points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Gaussian is an apodizing aperture exp(−½((x−x₀)²/σx² + (y−y₀)²/σy²)).
type Gaussian struct {
	SigmaX, SigmaY units.Length
	Center         geom.Point2
	Kind           Kind
}

// NewGaussian returns a Gaussian transmission profile.
func NewGaussian(sigmaX, sigmaY units.Length, center geom.Point2) (*Gaussian, error) {
	if sigmaX <= 0 || sigmaY <= 0 || !sigmaX.IsFinite() || !sigmaY.IsFinite() || !center.IsFinite() {
		return nil, fmt.Errorf("gaussian sigma %s, %s: %w", sigmaX, sigmaY, ErrInvalidAperture)
	}
	return &Gaussian{SigmaX: sigmaX, SigmaY: sigmaY, Center: center}, nil
}

func (g *Gaussian) Apodize(p geom.Point2) float64 {
	d := p.Sub(g.Center)
	u := d.X / g.SigmaX.Meters()
	v := d.Y / g.SigmaY.Meters()
	return g.Kind.apply(math.Exp(-0.5 * (u*u + v*v)))
}

// Stack multiplies the transmissions of its members.
type Stack struct {
	Members []Aperture
	Kind    Kind
}

// NewStack returns a stack of apertures. An empty stack transmits fully.
func NewStack(members ...Aperture) *Stack {
	return &Stack{Members: members}
}

func (s *Stack) Apodize(p geom.Point2) float64 {
	t := 1.0
	for _, m := range s.Members {
		t *= m.Apodize(p)
	}
	return s.Kind.apply(t)
}
