// Package distribution generates the ray start positions, energies and
// wavelengths of light sources.
package distribution

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

var (
	// ErrInvalidDistribution wraps parameter errors of all distributions.
	ErrInvalidDistribution = errors.New("invalid distribution")
	// ErrUnknownDistribution is returned for unknown distribution types.
	ErrUnknownDistribution = errors.New("unknown distribution type")
	// ErrNoPoints is returned when an energy distribution gets no points.
	ErrNoPoints = errors.New("no points to distribute energy on")
)

func invalid(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrInvalidDistribution, err)
}

// Position generates points in the xy plane of a source.
type Position interface {
	Points() []geom.Point2
	Spec() PositionSpec
}

// goldenRatio drives the Fibonacci lattices.
var goldenRatio = (1 + math.Sqrt(5)) / 2

// epsilon is the spacing of float64 values at 1.
const epsilon = 0x1p-52

// Hexapolar places one point at the centre and 6·k points on the k-th of
// Rings equally spaced rings, 1+3n(n+1) points in total.
type Hexapolar struct {
	Radius units.Length `yaml:"radius" validate:"finite,gte=0"`
	Rings  int          `yaml:"rings" validate:"gte=0,lte=255"`
}

// NewHexapolar validates the parameters. A zero radius is only accepted
// without rings.
func NewHexapolar(radius units.Length, rings int) (*Hexapolar, error) {
	h := &Hexapolar{Radius: radius, Rings: rings}
	if err := validation.Struct(h); err != nil {
		return nil, invalid("hexapolar", err)
	}
	if radius == 0 && rings > 0 {
		return nil, invalid("hexapolar", errors.New("radius must be positive when rings are requested"))
	}
	return h, nil
}

func (h *Hexapolar) Points() []geom.Point2 {
	pts := make([]geom.Point2, 0, 1+3*h.Rings*(h.Rings+1))
	pts = append(pts, geom.Point2{})
	if h.Rings == 0 {
		return pts
	}
	step := h.Radius.Meters() / float64(h.Rings)
	for ring := 1; ring <= h.Rings; ring++ {
		r := float64(ring) * step
		n := 6 * ring
		for k := 0; k < n; k++ {
			s, c := math.Sincos(2 * math.Pi * float64(k) / float64(n))
			pts = append(pts, geom.Point2{X: r * s, Y: r * c})
		}
	}
	return pts
}

func (h *Hexapolar) Spec() PositionSpec {
	return PositionSpec{Type: TypeHexapolar, Radius: h.Radius, Rings: h.Rings}
}

// HexagonalTiling places points on a triangular lattice, one at the centre
// and the others on hexagonal rings spaced Radius/Rings apart, keeping
// those within Radius of the centre.
type HexagonalTiling struct {
	Radius units.Length `yaml:"radius" validate:"finite,gt=0"`
	Rings  int          `yaml:"rings" validate:"gte=1,lte=255"`
}

func NewHexagonalTiling(radius units.Length, rings int) (*HexagonalTiling, error) {
	h := &HexagonalTiling{Radius: radius, Rings: rings}
	if err := validation.Struct(h); err != nil {
		return nil, invalid("hexagonal tiling", err)
	}
	return h, nil
}

func (h *HexagonalTiling) Points() []geom.Point2 {
	radius := h.Radius.Meters()
	step := radius / float64(h.Rings)
	border := radius * (1 + 5*epsilon)
	pts := []geom.Point2{{}}
	var corners [7]geom.Point2
	for ring := 1; ; ring++ {
		r := float64(ring) * step
		for j := range corners {
			s, c := math.Sincos(math.Pi / 3 * float64(j))
			corners[j] = geom.Point2{X: r * c, Y: r * s}
		}
		inside := false
		for j := 0; j < 6; j++ {
			a, b := corners[j], corners[j+1]
			for k := 0; k < ring; k++ {
				f := float64(k) / float64(ring)
				p := geom.Point2{X: a.X + f*(b.X-a.X), Y: a.Y + f*(b.Y-a.Y)}
				if math.Hypot(p.X, p.Y) <= border {
					pts = append(pts, p)
					inside = true
				}
			}
		}
		if !inside {
			return pts
		}
	}
}

func (h *HexagonalTiling) Spec() PositionSpec {
	return PositionSpec{Type: TypeHexagonalTiling, Radius: h.Radius, Rings: h.Rings}
}

// rectParams is shared by the rectangular point sets.
type rectParams struct {
	SideX units.Length `yaml:"side_x" validate:"finite,gte=0"`
	SideY units.Length `yaml:"side_y" validate:"finite,gte=0"`
	Count int          `yaml:"count" validate:"gte=1"`
}

func (p rectParams) validate(name string) error {
	if err := validation.Struct(p); err != nil {
		return invalid(name, err)
	}
	if p.SideX == 0 && p.SideY == 0 {
		return invalid(name, errors.New("at least one side length must be positive"))
	}
	return nil
}

// FibonacciRectangle spreads Count points over a rectangle centred on the
// origin along a golden-ratio lattice.
type FibonacciRectangle struct {
	rectParams
}

func NewFibonacciRectangle(sideX, sideY units.Length, count int) (*FibonacciRectangle, error) {
	p := rectParams{sideX, sideY, count}
	if err := p.validate("fibonacci rectangle"); err != nil {
		return nil, err
	}
	return &FibonacciRectangle{p}, nil
}

func (f *FibonacciRectangle) Points() []geom.Point2 {
	pts := make([]geom.Point2, f.Count)
	for i := range pts {
		fi := float64(i)
		_, frac := math.Modf(fi / goldenRatio)
		pts[i] = geom.Point2{
			X: f.SideX.Meters() * (frac - 0.5),
			Y: f.SideY.Meters() * (fi/float64(f.Count) - 0.5),
		}
	}
	return pts
}

func (f *FibonacciRectangle) Spec() PositionSpec {
	return PositionSpec{Type: TypeFibonacciRectangle, SideX: f.SideX, SideY: f.SideY, Count: f.Count}
}

// FibonacciEllipse spreads Count points over an ellipse with a sunflower
// pattern.
type FibonacciEllipse struct {
	RadiusX units.Length
	RadiusY units.Length
	Count   int
}

func NewFibonacciEllipse(radiusX, radiusY units.Length, count int) (*FibonacciEllipse, error) {
	p := rectParams{radiusX, radiusY, count}
	if err := p.validate("fibonacci ellipse"); err != nil {
		return nil, err
	}
	return &FibonacciEllipse{RadiusX: radiusX, RadiusY: radiusY, Count: count}, nil
}

func (f *FibonacciEllipse) Points() []geom.Point2 {
	pts := make([]geom.Point2, f.Count)
	for i := range pts {
		fi := float64(i)
		_, frac := math.Modf(fi / goldenRatio)
		s, c := math.Sincos(2 * math.Pi * frac)
		r := math.Sqrt(fi / float64(f.Count))
		pts[i] = geom.Point2{X: f.RadiusX.Meters() * s * r, Y: f.RadiusY.Meters() * c * r}
	}
	return pts
}

func (f *FibonacciEllipse) Spec() PositionSpec {
	return PositionSpec{Type: TypeFibonacciEllipse, SideX: f.RadiusX, SideY: f.RadiusY, Count: f.Count}
}

// Grid places NX by NY points on a regular grid centred on the origin.
// An axis with a single point sits at zero.
type Grid struct {
	SideX units.Length `yaml:"side_x" validate:"finite,gte=0"`
	SideY units.Length `yaml:"side_y" validate:"finite,gte=0"`
	NX    int          `yaml:"nx" validate:"gte=1"`
	NY    int          `yaml:"ny" validate:"gte=1"`
}

func NewGrid(sideX, sideY units.Length, nx, ny int) (*Grid, error) {
	g := &Grid{SideX: sideX, SideY: sideY, NX: nx, NY: ny}
	if err := validation.Struct(g); err != nil {
		return nil, invalid("grid", err)
	}
	if sideX == 0 && sideY == 0 {
		return nil, invalid("grid", errors.New("at least one side length must be positive"))
	}
	return g, nil
}

func gridAxis(side float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		return out
	}
	step := side / float64(n-1)
	for i := range out {
		out[i] = float64(i)*step - side/2
	}
	return out
}

func (g *Grid) Points() []geom.Point2 {
	xs := gridAxis(g.SideX.Meters(), g.NX)
	ys := gridAxis(g.SideY.Meters(), g.NY)
	pts := make([]geom.Point2, 0, g.NX*g.NY)
	for _, x := range xs {
		for _, y := range ys {
			pts = append(pts, geom.Point2{X: x, Y: y})
		}
	}
	return pts
}

func (g *Grid) Spec() PositionSpec {
	return PositionSpec{Type: TypeGrid, SideX: g.SideX, SideY: g.SideY, NX: g.NX, NY: g.NY}
}

// Random draws Count uniformly distributed points from a rectangle centred
// on the origin. The same seed yields the same points.
type Random struct {
	rectParams
	Seed uint64
}

func NewRandom(sideX, sideY units.Length, count int, seed uint64) (*Random, error) {
	p := rectParams{sideX, sideY, count}
	if err := p.validate("random"); err != nil {
		return nil, err
	}
	return &Random{rectParams: p, Seed: seed}, nil
}

func (r *Random) Points() []geom.Point2 {
	rng := rand.New(rand.NewPCG(r.Seed, r.Seed^0x9e3779b97f4a7c15))
	pts := make([]geom.Point2, r.Count)
	for i := range pts {
		pts[i] = geom.Point2{
			X: r.SideX.Meters() * (rng.Float64() - 0.5),
			Y: r.SideY.Meters() * (rng.Float64() - 0.5),
		}
	}
	return pts
}

func (r *Random) Spec() PositionSpec {
	return PositionSpec{Type: TypeRandom, SideX: r.SideX, SideY: r.SideY, Count: r.Count, Seed: r.Seed}
}

// Sobol places the first Count points of the two dimensional Sobol
// sequence on a rectangle centred on the origin.
type Sobol struct {
	rectParams
}

func NewSobol(sideX, sideY units.Length, count int) (*Sobol, error) {
	p := rectParams{sideX, sideY, count}
	if err := p.validate("sobol"); err != nil {
		return nil, err
	}
	return &Sobol{p}, nil
}

func (s *Sobol) Points() []geom.Point2 {
	seq := sobolSequence(s.Count)
	pts := make([]geom.Point2, len(seq))
	for i, u := range seq {
		pts[i] = geom.Point2{
			X: s.SideX.Meters() * (u[0] - 0.5),
			Y: s.SideY.Meters() * (u[1] - 0.5),
		}
	}
	return pts
}

func (s *Sobol) Spec() PositionSpec {
	return PositionSpec{Type: TypeSobol, SideX: s.SideX, SideY: s.SideY, Count: s.Count}
}
