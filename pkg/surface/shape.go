// Package surface models optical surfaces: a geometric shape in a local
// frame, a coating, an aperture and the hit map collecting ray hits.
package surface

import (
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// ErrInvalidShape is returned for shapes with unusable parameters.
var ErrInvalidShape = errors.New("invalid surface shape")

// eps is the smallest forward distance (in metres) accepted as an
// intersection. Rays starting on a surface do not hit it again.
const eps = 1e-12

// Shape is the geometry of a surface in its local frame.
type Shape interface {
	// IntersectAndNormal returns the first forward intersection of the ray
	// starting at pos with direction dir, and the unit surface normal
	// there, oriented against the ray. ok is false when the ray misses.
	IntersectAndNormal(pos, dir geom.Vec3) (point, normal geom.Vec3, ok bool)
	// Mirrored returns the shape reflected at the z = 0 plane, as seen by
	// light arriving from the other side.
	Mirrored() Shape
	fmt.Stringer
}

// Plane is the z = 0 plane.
type Plane struct{}

func (Plane) IntersectAndNormal(pos, dir geom.Vec3) (geom.Vec3, geom.Vec3, bool) {
	return intersectPlane(pos, dir)
}

func (Plane) Mirrored() Shape { return Plane{} }

func (Plane) String() string { return "plane" }

func intersectPlane(pos, dir geom.Vec3) (geom.Vec3, geom.Vec3, bool) {
	if dir.Z == 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	t := -pos.Z / dir.Z
	if t < 0 && pos.Z != 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	p := pos.Add(dir.Scale(max(t, 0)))
	p.Z = 0
	return p, geom.NewVec3(0, 0, -math.Copysign(1, dir.Z)), true
}

// Sphere is a spherical cap with its vertex at the origin. A positive
// radius of curvature puts the centre at +z, a negative one at -z.
type Sphere struct {
	radius float64
}

// NewSphere returns a sphere with the given signed radius of curvature.
func NewSphere(radius units.Length) (*Sphere, error) {
	if !radius.IsFinite() || radius == 0 {
		return nil, fmt.Errorf("radius of curvature %v: %w", radius, ErrInvalidShape)
	}
	return &Sphere{radius: radius.Meters()}, nil
}

// Radius returns the signed radius of curvature.
func (s *Sphere) Radius() units.Length { return units.Meter(s.radius) }

func (s *Sphere) Mirrored() Shape { return &Sphere{radius: -s.radius} }

func (s *Sphere) String() string { return fmt.Sprintf("sphere(R=%v)", s.Radius()) }

func (s *Sphere) IntersectAndNormal(pos, dir geom.Vec3) (geom.Vec3, geom.Vec3, bool) {
	center := geom.NewVec3(0, 0, s.radius)
	oc := pos.Sub(center)
	a := dir.Dot(dir)
	if a == 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	halfB := oc.Dot(dir)
	c := oc.Dot(oc) - s.radius*s.radius
	disc := halfB*halfB - a*c
	if disc < 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	sq := math.Sqrt(disc)
	for _, t := range [2]float64{(-halfB - sq) / a, (-halfB + sq) / a} {
		if t < eps {
			continue
		}
		p := pos.Add(dir.Scale(t))
		// only the hemisphere around the vertex belongs to the cap
		if (p.Z-s.radius)*math.Copysign(1, s.radius) > 0 {
			continue
		}
		n := p.Sub(center).Scale(1 / math.Abs(s.radius))
		if n.Dot(dir) > 0 {
			n = n.Negate()
		}
		return p, n, true
	}
	return geom.Vec3{}, geom.Vec3{}, false
}

// Cylinder is a cylindrical surface curved in the x-z plane with its axis
// parallel to y and its vertex line through the origin. The sign of the
// radius follows Sphere.
type Cylinder struct {
	radius float64
}

// NewCylinder returns a cylinder with the given signed radius of curvature.
func NewCylinder(radius units.Length) (*Cylinder, error) {
	if !radius.IsFinite() || radius == 0 {
		return nil, fmt.Errorf("radius of curvature %v: %w", radius, ErrInvalidShape)
	}
	return &Cylinder{radius: radius.Meters()}, nil
}

// Radius returns the signed radius of curvature.
func (c *Cylinder) Radius() units.Length { return units.Meter(c.radius) }

func (c *Cylinder) Mirrored() Shape { return &Cylinder{radius: -c.radius} }

func (c *Cylinder) String() string { return fmt.Sprintf("cylinder(R=%v)", c.Radius()) }

func (c *Cylinder) IntersectAndNormal(pos, dir geom.Vec3) (geom.Vec3, geom.Vec3, bool) {
	ox, oz := pos.X, pos.Z-c.radius
	a := dir.X*dir.X + dir.Z*dir.Z
	if a == 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	halfB := ox*dir.X + oz*dir.Z
	cc := ox*ox + oz*oz - c.radius*c.radius
	disc := halfB*halfB - a*cc
	if disc < 0 {
		return geom.Vec3{}, geom.Vec3{}, false
	}
	sq := math.Sqrt(disc)
	for _, t := range [2]float64{(-halfB - sq) / a, (-halfB + sq) / a} {
		if t < eps {
			continue
		}
		p := pos.Add(dir.Scale(t))
		if (p.Z-c.radius)*math.Copysign(1, c.radius) > 0 {
			continue
		}
		n := geom.NewVec3(p.X, 0, p.Z-c.radius).Scale(1 / math.Abs(c.radius))
		if n.Dot(dir) > 0 {
			n = n.Negate()
		}
		return p, n, true
	}
	return geom.Vec3{}, geom.Vec3{}, false
}

// Parabola is the paraboloid z = (x²+y²)/(4f) with its vertex at the
// origin. A positive focal length opens the surface towards +z, so that a
// mirror hit from -z focuses an axial beam at z = f.
type Parabola struct {
	focal float64
}

// NewParabola returns a paraboloid with the given signed focal length.
func NewParabola(focalLength units.Length) (*Parabola, error) {
	if !focalLength.IsFinite() || focalLength == 0 {
		return nil, fmt.Errorf("focal length %v: %w", focalLength, ErrInvalidShape)
	}
	return &Parabola{focal: focalLength.Meters()}, nil
}

// FocalLength returns the signed focal length.
func (p *Parabola) FocalLength() units.Length { return units.Meter(p.focal) }

func (p *Parabola) Mirrored() Shape { return &Parabola{focal: -p.focal} }

func (p *Parabola) String() string { return fmt.Sprintf("parabola(f=%v)", p.FocalLength()) }

func (p *Parabola) IntersectAndNormal(pos, dir geom.Vec3) (geom.Vec3, geom.Vec3, bool) {
	// (px + t dx)² + (py + t dy)² = 4f (pz + t dz)
	f4 := 4 * p.focal
	a := dir.X*dir.X + dir.Y*dir.Y
	b := 2*(pos.X*dir.X+pos.Y*dir.Y) - f4*dir.Z
	c := pos.X*pos.X + pos.Y*pos.Y - f4*pos.Z
	var roots [2]float64
	switch {
	case a == 0:
		if b == 0 {
			return geom.Vec3{}, geom.Vec3{}, false
		}
		roots = [2]float64{-c / b, math.Inf(1)}
	default:
		disc := b*b - 4*a*c
		if disc < 0 {
			return geom.Vec3{}, geom.Vec3{}, false
		}
		// stable form of the quadratic roots
		q := -(b + math.Copysign(math.Sqrt(disc), b)) / 2
		t1, t2 := q/a, math.Inf(1)
		if q != 0 {
			t2 = c / q
		}
		roots = [2]float64{min(t1, t2), max(t1, t2)}
	}
	for _, t := range roots {
		if t < eps || math.IsInf(t, 0) {
			continue
		}
		pt := pos.Add(dir.Scale(t))
		n := geom.NewVec3(2*pt.X, 2*pt.Y, -f4).Normalize()
		if n.Dot(dir) > 0 {
			n = n.Negate()
		}
		return pt, n, true
	}
	return geom.Vec3{}, geom.Vec3{}, false
}

// Paraxial is a flat surface acting as an ideal thin lens.
type Paraxial struct {
	focal float64
}

// NewParaxial returns a paraxial surface with the given focal length.
func NewParaxial(focalLength units.Length) (*Paraxial, error) {
	if !focalLength.IsFinite() || focalLength == 0 {
		return nil, fmt.Errorf("focal length %v: %w", focalLength, ErrInvalidShape)
	}
	return &Paraxial{focal: focalLength.Meters()}, nil
}

// FocalLength returns the focal length.
func (p *Paraxial) FocalLength() units.Length { return units.Meter(p.focal) }

// Mirrored returns p; a thin lens acts the same from both sides.
func (p *Paraxial) Mirrored() Shape { return p }

func (p *Paraxial) String() string { return fmt.Sprintf("paraxial(f=%v)", p.FocalLength()) }

func (p *Paraxial) IntersectAndNormal(pos, dir geom.Vec3) (geom.Vec3, geom.Vec3, bool) {
	return intersectPlane(pos, dir)
}
