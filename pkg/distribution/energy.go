package distribution

import (
	"context"
	"errors"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/hitmap"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Energy assigns energies to points. The energies returned by Apply sum
// to Total, except for fluence profiles, which only approximate it.
type Energy interface {
	Apply(points []geom.Point2) ([]units.Energy, error)
	Total() units.Energy
	Spec() EnergySpec
}

// Uniform gives every point the same share of the total energy.
type Uniform struct {
	total units.Energy
}

func NewUniform(total units.Energy) (*Uniform, error) {
	if err := validation.Var(total, "finite,gt=0"); err != nil {
		return nil, invalid("uniform energy", err)
	}
	return &Uniform{total: total}, nil
}

func (u *Uniform) Total() units.Energy { return u.total }

func (u *Uniform) Apply(points []geom.Point2) ([]units.Energy, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	out := make([]units.Energy, len(points))
	each := u.total.Scale(1 / float64(len(points)))
	for i := range out {
		out[i] = each
	}
	return out, nil
}

func (u *Uniform) Spec() EnergySpec {
	return EnergySpec{Type: TypeUniform, Total: u.total}
}

// Gaussian2D weights the points with a rotated, possibly super-Gaussian
// profile and normalises the weights to the total energy. Rectangular
// profiles separate into x and y factors; elliptical ones do not.
type Gaussian2D struct {
	TotalEnergy units.Energy `yaml:"total" validate:"finite,gt=0"`
	MuX         units.Length `yaml:"mu_x" validate:"finite"`
	MuY         units.Length `yaml:"mu_y" validate:"finite"`
	SigmaX      units.Length `yaml:"sigma_x" validate:"finite,gt=0"`
	SigmaY      units.Length `yaml:"sigma_y" validate:"finite,gt=0"`
	Power       float64      `yaml:"power" validate:"finite,gt=0"`
	Theta       units.Angle  `yaml:"theta" validate:"finite"`
	Rectangular bool         `yaml:"rectangular"`
}

// NewGaussian2D validates the profile parameters.
func NewGaussian2D(g Gaussian2D) (*Gaussian2D, error) {
	if err := validation.Struct(g); err != nil {
		return nil, invalid("gaussian energy", err)
	}
	return &g, nil
}

func (g *Gaussian2D) Total() units.Energy { return g.TotalEnergy }

// weight evaluates the unnormalised profile at p.
func (g *Gaussian2D) weight(p geom.Point2, sin, cos float64) float64 {
	dx, dy := p.X-g.MuX.Meters(), p.Y-g.MuY.Meters()
	xr := (dx*cos - dy*sin) / g.SigmaX.Meters()
	yr := (dy*cos + dx*sin) / g.SigmaY.Meters()
	if g.Rectangular {
		return math.Exp(-math.Pow(0.5*xr*xr, g.Power) - math.Pow(0.5*yr*yr, g.Power))
	}
	return math.Exp(-math.Pow(0.5*(xr*xr+yr*yr), g.Power))
}

func (g *Gaussian2D) Apply(points []geom.Point2) ([]units.Energy, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	sin, cos := math.Sincos(g.Theta.Radians())
	w := make([]float64, len(points))
	for i, p := range points {
		w[i] = g.weight(p, sin, cos)
	}
	sum := kahanSum(w)
	if sum == 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return nil, invalid("gaussian energy", errors.New("profile vanishes on all points"))
	}
	out := make([]units.Energy, len(points))
	for i, v := range w {
		out[i] = g.TotalEnergy.Scale(v / sum)
	}
	return out, nil
}

func (g *Gaussian2D) Spec() EnergySpec {
	return EnergySpec{
		Type:        TypeGaussian,
		Total:       g.TotalEnergy,
		MuX:         g.MuX,
		MuY:         g.MuY,
		SigmaX:      g.SigmaX,
		SigmaY:      g.SigmaY,
		Power:       g.Power,
		Theta:       g.Theta,
		Rectangular: g.Rectangular,
	}
}

// GaussianFluence evaluates a rotated elliptical Gaussian fluence profile
// whose integral is TotalEnergy, and gives each point the fluence at its
// position times the area of its Voronoi cell. The energies approach the
// total only when the points cover the profile densely.
type GaussianFluence struct {
	TotalEnergy units.Energy `yaml:"total" validate:"finite,gt=0"`
	MuX         units.Length `yaml:"mu_x" validate:"finite"`
	MuY         units.Length `yaml:"mu_y" validate:"finite"`
	SigmaX      units.Length `yaml:"sigma_x" validate:"finite,gt=0"`
	SigmaY      units.Length `yaml:"sigma_y" validate:"finite,gt=0"`
	Theta       units.Angle  `yaml:"theta" validate:"finite"`
}

func NewGaussianFluence(g GaussianFluence) (*GaussianFluence, error) {
	if err := validation.Struct(g); err != nil {
		return nil, invalid("gaussian fluence", err)
	}
	return &g, nil
}

func (g *GaussianFluence) Total() units.Energy { return g.TotalEnergy }

// Fluence returns the fluence in J/m² at p.
func (g *GaussianFluence) Fluence(p geom.Point2) float64 {
	sx, sy := g.SigmaX.Meters(), g.SigmaY.Meters()
	profile := Gaussian2D{MuX: g.MuX, MuY: g.MuY, SigmaX: g.SigmaX, SigmaY: g.SigmaY, Power: 1}
	sin, cos := math.Sincos(g.Theta.Radians())
	return g.TotalEnergy.Joules() / (2 * math.Pi * sx * sy) * profile.weight(p, sin, cos)
}

func (g *GaussianFluence) Apply(points []geom.Point2) ([]units.Energy, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	areas, err := hitmap.CellAreas(context.Background(), points, 0)
	if err != nil {
		return nil, invalid("gaussian fluence", err)
	}
	out := make([]units.Energy, len(points))
	for i, p := range points {
		out[i] = units.Joule(g.Fluence(p) * areas[i])
	}
	return out, nil
}

func (g *GaussianFluence) Spec() EnergySpec {
	return EnergySpec{
		Type:   TypeGaussianFluence,
		Total:  g.TotalEnergy,
		MuX:    g.MuX,
		MuY:    g.MuY,
		SigmaX: g.SigmaX,
		SigmaY: g.SigmaY,
		Theta:  g.Theta,
	}
}

func kahanSum(values []float64) float64 {
	var sum, c float64
	for _, v := range values {
		y := v - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return sum
}
