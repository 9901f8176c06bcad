// Package ray implements geometric rays and ray bundles: free-space
// propagation, refraction and reflection at optic surfaces and the bundle
// statistics used by detectors.
package ray

import (
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/hitmap"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

var (
	// ErrInvalidRay is returned for rays with unusable parameters.
	ErrInvalidRay = errors.New("invalid ray")
	// ErrNoZComponent is returned when a ray cannot advance along z.
	ErrNoZComponent = errors.New("ray does not travel along +z")
	// ErrInvalidDistance is returned for negative or non-finite distances.
	ErrInvalidDistance = errors.New("invalid propagation distance")
	// ErrInvalidFocalLength is returned for zero or non-finite focal lengths.
	ErrInvalidFocalLength = errors.New("focal length must be non-zero and finite")
	// ErrInvalidIndex is returned for refractive indices below 1.
	ErrInvalidIndex = errors.New("refractive index must be finite and >= 1")
	// ErrOutsideSpectrum is returned when a ray wavelength lies outside a
	// transmission spectrum.
	ErrOutsideSpectrum = errors.New("ray wavelength outside spectrum")
)

// Ray is a single geometric ray. Direction is a unit vector; PathLength is
// the optical path travelled so far.
type Ray struct {
	Position    geom.Vec3
	Direction   geom.Vec3
	Wavelength  units.Length
	Energy      units.Energy
	Index       float64
	PathLength  units.Length
	Bounces     int
	Refractions int
	Valid       bool
}

// New returns a valid ray in vacuum.
func New(pos, dir geom.Vec3, wavelength units.Length, energy units.Energy) (Ray, error) {
	if !pos.IsFinite() || !dir.IsFinite() || dir.Length() == 0 {
		return Ray{}, fmt.Errorf("position %v direction %v: %w", pos, dir, ErrInvalidRay)
	}
	if err := validation.Var(wavelength, "finite,gt=0"); err != nil {
		return Ray{}, fmt.Errorf("wavelength: %w: %w", ErrInvalidRay, err)
	}
	if err := validation.Var(energy, "finite,gte=0"); err != nil {
		return Ray{}, fmt.Errorf("energy: %w: %w", ErrInvalidRay, err)
	}
	return Ray{
		Position:   pos,
		Direction:  dir.Normalize(),
		Wavelength: wavelength,
		Energy:     energy,
		Index:      1,
		Valid:      true,
	}, nil
}

// NewCollimated returns a ray travelling along +z.
func NewCollimated(pos geom.Vec3, wavelength units.Length, energy units.Energy) (Ray, error) {
	return New(pos, geom.UnitZ(), wavelength, energy)
}

// PropagateAlongZ moves the ray along its direction until its z coordinate
// has grown by distance.
func (r *Ray) PropagateAlongZ(distance units.Length) error {
	d := distance.Meters()
	if !distance.IsFinite() || d < 0 {
		return fmt.Errorf("%v: %w", distance, ErrInvalidDistance)
	}
	if d == 0 {
		return nil
	}
	if r.Direction.Z <= 0 {
		return fmt.Errorf("direction %v: %w", r.Direction, ErrNoZComponent)
	}
	length := d / r.Direction.Z
	r.Position = r.Position.Add(r.Direction.Scale(length))
	r.PathLength += units.Meter(length * r.Index)
	return nil
}

// PropagateToPlane moves the ray along its line onto the plane at the
// given z. The ray may move backwards when it already lies beyond the
// plane; the path length then decreases accordingly.
func (r *Ray) PropagateToPlane(z units.Length) error {
	if !z.IsFinite() {
		return fmt.Errorf("plane at %v: %w", z, ErrInvalidDistance)
	}
	dz := z.Meters() - r.Position.Z
	if dz == 0 {
		return nil
	}
	if r.Direction.Z <= 0 {
		return fmt.Errorf("direction %v: %w", r.Direction, ErrNoZComponent)
	}
	length := dz / r.Direction.Z
	r.Position = r.Position.Add(r.Direction.Scale(length))
	r.Position.Z = z.Meters()
	r.PathLength += units.Meter(length * r.Index)
	return nil
}

// PropagateTo moves the ray to a point on its line and accounts the optical
// path.
func (r *Ray) PropagateTo(p geom.Vec3) {
	r.PathLength += units.Meter(p.Sub(r.Position).Length() * r.Index)
	r.Position = p
}

// RefractParaxial applies an ideal thin lens at the ray's current
// position: the transverse direction changes by -position/f.
func (r *Ray) RefractParaxial(f units.Length) error {
	if !f.IsFinite() || f == 0 {
		return fmt.Errorf("%v: %w", f, ErrInvalidFocalLength)
	}
	if r.Direction.Z == 0 {
		return fmt.Errorf("direction %v: %w", r.Direction, ErrNoZComponent)
	}
	fm := f.Meters()
	d := r.Direction.Scale(1 / math.Abs(r.Direction.Z))
	d.X -= r.Position.X / fm
	d.Y -= r.Position.Y / fm
	r.Direction = d.Normalize()

	// an ideal lens images without aberration: remove the geometric
	// path difference to the focus
	rr := r.Position.X*r.Position.X + r.Position.Y*r.Position.Y
	r.PathLength -= units.Meter(math.Sqrt(rr+fm*fm) - math.Abs(fm))
	r.Refractions++
	return nil
}

func reflect(dir, normal geom.Vec3) geom.Vec3 {
	return dir.Sub(normal.Scale(2 * dir.Dot(normal)))
}

// hitSurface moves the ray onto the surface and applies the aperture. It
// returns the unit normal, the hit point in the surface frame and the
// energy arriving there. ok is false when the ray misses or is blocked;
// the ray is then invalid.
func (r *Ray) hitSurface(s *surface.OpticSurface) (normal, local geom.Vec3, arriving units.Energy, ok bool) {
	point, normal, local, ok := s.Intersect(r.Position, r.Direction)
	if !ok {
		r.Valid = false
		return geom.Vec3{}, geom.Vec3{}, 0, false
	}
	r.PropagateTo(point)
	arriving = r.Energy
	t := s.Transmission(local)
	if t <= 0 {
		r.Valid = false
		return geom.Vec3{}, geom.Vec3{}, 0, false
	}
	r.Energy = r.Energy.Scale(t)
	return normal.Normalize(), local, arriving, true
}

func hitPoint(local geom.Vec3, e units.Energy) *hitmap.HitPoint {
	hp, err := hitmap.NewEnergyHit(local, e)
	if err != nil {
		return nil
	}
	return &hp
}

// RefractOnSurface refracts the ray at s into a medium of index n2 using
// Snell's law in vector form. The ray becomes the transmitted ray; the
// returned child carries the energy reflected by the coating. Under total
// internal reflection the ray becomes invalid and the child carries all
// energy. A ray missing the surface or blocked by its aperture is
// invalidated and nothing is returned. hit is the point to record on the
// surface, in its frame.
func (r *Ray) RefractOnSurface(s *surface.OpticSurface, n2 float64) (reflected *Ray, hit *hitmap.HitPoint, err error) {
	if err := validation.Var(n2, "finite,gte=1"); err != nil {
		return nil, nil, fmt.Errorf("%g: %w", n2, ErrInvalidIndex)
	}
	normal, local, arriving, ok := r.hitSurface(s)
	if !ok {
		return nil, nil, nil
	}
	hit = hitPoint(local, arriving)

	n1 := r.Index
	in := r.Direction
	cosI := -in.Dot(normal)
	mu := n1 / n2
	k := 1 - mu*mu*(1-cosI*cosI)

	child := *r
	child.Direction = reflect(in, normal)
	child.Bounces++

	if k < 0 {
		r.Valid = false
		return &child, hit, nil
	}

	R, err := s.Coating().Reflectivity(in, normal, n1, n2)
	if err != nil {
		return nil, nil, err
	}
	e := r.Energy
	r.Direction = in.Scale(mu).Add(normal.Scale(mu*cosI - math.Sqrt(k))).Normalize()
	r.Energy = e.Scale(1 - R)
	r.Index = n2
	r.Refractions++

	child.Energy = e.Scale(R)
	return &child, hit, nil
}

// ReflectOnSurface mirrors the ray at s and scales its energy by the
// reflectivity. The transmitted part is discarded.
func (r *Ray) ReflectOnSurface(s *surface.OpticSurface, reflectivity float64) (*hitmap.HitPoint, error) {
	if err := validation.Var(reflectivity, "finite,probability"); err != nil {
		return nil, fmt.Errorf("reflectivity %g: %w", reflectivity, err)
	}
	normal, local, arriving, ok := r.hitSurface(s)
	if !ok {
		return nil, nil
	}
	r.Direction = reflect(r.Direction, normal)
	r.Energy = r.Energy.Scale(reflectivity)
	r.Bounces++
	return hitPoint(local, arriving), nil
}

// DiffractOnSurface reflects the ray off a periodic surface into the given
// diffraction order. grating is the grating vector (2π/period along the
// grooves' normal, in the surface plane, node frame). A ray whose order is
// evanescent is invalidated.
func (r *Ray) DiffractOnSurface(s *surface.OpticSurface, grating geom.Vec3, order int) (*hitmap.HitPoint, error) {
	normal, local, arriving, ok := r.hitSurface(s)
	if !ok {
		return nil, nil
	}
	k0 := 2 * math.Pi * r.Index / r.Wavelength.Meters()
	k := r.Direction.Scale(k0)
	kPara := normal.Cross(k.Cross(normal))
	kPerp := normal.Scale(k.Dot(normal))
	kParaOut := kPara.Add(grating.Scale(float64(order)))
	perp2 := k0*k0 - kParaOut.Dot(kParaOut)
	if perp2 < 0 || kPerp.Length() == 0 {
		r.Valid = false
		return hitPoint(local, arriving), nil
	}
	kPerpOut := kPerp.Normalize().Negate().Scale(math.Sqrt(perp2))
	r.Direction = kPerpOut.Add(kParaOut).Normalize()
	// lateral phase of the order relative to the grating origin
	r.PathLength += units.Meter(float64(order) * grating.Length() / (2 * math.Pi) * local.X * r.Wavelength.Meters())
	r.Bounces++
	return hitPoint(local, arriving), nil
}

// Transform maps the ray from a local frame into the enclosing frame.
func (r Ray) Transform(iso geom.Isometry) Ray {
	r.Position = iso.TransformPoint(r.Position)
	r.Direction = iso.TransformVector(r.Direction)
	return r
}

// InverseTransform maps the ray from the enclosing frame into a local frame.
func (r Ray) InverseTransform(iso geom.Isometry) Ray {
	r.Position = iso.InversePoint(r.Position)
	r.Direction = iso.InverseVector(r.Direction)
	return r
}

// FlipZ mirrors the ray at the z = 0 plane. Reflected light re-enters an
// unfolded frame in which it travels along +z again.
func (r Ray) FlipZ() Ray {
	r.Position = r.Position.FlipZ()
	r.Direction = r.Direction.FlipZ()
	return r
}
