package surface

import (
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/aperture"
	"github.com/dd0wney/cluso-opticbench/pkg/coating"
	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/hitmap"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Direction selects the forward or backward reflection cache.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	return 1 - d
}

// Bundle is a ray bundle as seen by the reflection caches.
type Bundle interface {
	ID() uuid.UUID
	Len() int
}

// OpticSurface is a shape placed in the frame of its node, with a
// coating, an aperture and a hit map.
type OpticSurface struct {
	name     string
	shape    Shape
	coating  coating.Coating
	aperture aperture.Aperture
	iso      geom.Isometry
	hits     *hitmap.HitMap
	cache    *[2][]cached
}

type cached struct {
	pass   int
	bundle Bundle
}

// New returns a surface without coating and aperture at the node origin.
func New(name string, shape Shape) *OpticSurface {
	return &OpticSurface{
		name:     name,
		shape:    shape,
		coating:  coating.IdealAR{},
		aperture: aperture.None{},
		iso:      geom.Identity(),
		hits:     hitmap.New(),
		cache:    new([2][]cached),
	}
}

func (s *OpticSurface) Name() string                { return s.name }
func (s *OpticSurface) Shape() Shape                { return s.shape }
func (s *OpticSurface) Coating() coating.Coating    { return s.coating }
func (s *OpticSurface) Aperture() aperture.Aperture { return s.aperture }
func (s *OpticSurface) Isometry() geom.Isometry     { return s.iso }
func (s *OpticSurface) HitMap() *hitmap.HitMap      { return s.hits }

// SetShape replaces the shape.
func (s *OpticSurface) SetShape(shape Shape) { s.shape = shape }

// SetCoating replaces the coating; nil means an ideal AR coating.
func (s *OpticSurface) SetCoating(c coating.Coating) {
	if c == nil {
		c = coating.IdealAR{}
	}
	s.coating = c
}

// SetAperture replaces the aperture; nil means no aperture.
func (s *OpticSurface) SetAperture(a aperture.Aperture) {
	if a == nil {
		a = aperture.None{}
	}
	s.aperture = a
}

// SetIsometry places the surface in the node frame.
func (s *OpticSurface) SetIsometry(iso geom.Isometry) { s.iso = iso }

// Intersect intersects a ray given in the node frame. It returns the hit
// point and normal in the node frame together with the hit point in the
// surface frame.
func (s *OpticSurface) Intersect(pos, dir geom.Vec3) (point, normal, local geom.Vec3, ok bool) {
	lp, ln, ok := s.shape.IntersectAndNormal(s.iso.InversePoint(pos), s.iso.InverseVector(dir))
	if !ok {
		return geom.Vec3{}, geom.Vec3{}, geom.Vec3{}, false
	}
	return s.iso.TransformPoint(lp), s.iso.TransformVector(ln), lp, true
}

// Transmission returns the aperture transmission at a hit point given in
// the surface frame.
func (s *OpticSurface) Transmission(local geom.Vec3) float64 {
	return s.aperture.Apodize(local.XY())
}

// AddHit records a hit point on the surface.
func (s *OpticSurface) AddHit(bounce int, bundle uuid.UUID, hp hitmap.HitPoint) error {
	return s.hits.AddHitPoint(bounce, bundle, hp)
}

// CacheReflected stores a bundle reflected in the given pass while light
// travelled in direction d. Empty bundles are not stored.
func (s *OpticSurface) CacheReflected(d Direction, pass int, b Bundle) {
	if b == nil || b.Len() == 0 {
		return
	}
	s.cache[d] = append(s.cache[d], cached{pass: pass, bundle: b})
}

// Reflected returns the bundles cached for direction d.
func (s *OpticSurface) Reflected(d Direction) []Bundle {
	out := make([]Bundle, 0, len(s.cache[d]))
	for _, c := range s.cache[d] {
		out = append(out, c.bundle)
	}
	return out
}

// TakeReflected removes and returns the bundles cached for direction d in
// passes before the given one.
func (s *OpticSurface) TakeReflected(d Direction, before int) []Bundle {
	var out []Bundle
	keep := s.cache[d][:0]
	for _, c := range s.cache[d] {
		if c.pass < before {
			out = append(out, c.bundle)
		} else {
			keep = append(keep, c)
		}
	}
	clear(s.cache[d][len(keep):])
	s.cache[d] = keep
	return out
}

// Mirrored returns a view of the surface for light travelling backwards
// through a node of the given length. The node frame is mirrored at
// z = length/2: the view shares hit map and caches with s, its shape is
// mirrored and it is placed at length - z.
func (s *OpticSurface) Mirrored(length units.Length) *OpticSurface {
	shift := geom.NewIsometry(geom.NewVec3(0, 0, length.Meters()), 0, 0, 0)
	m := *s
	m.shape = s.shape.Mirrored()
	m.iso = shift.Compose(s.iso.MirrorZ())
	return &m
}

// Reset clears the hit map and both caches.
func (s *OpticSurface) Reset() {
	s.hits.Reset()
	*s.cache = [2][]cached{}
}
