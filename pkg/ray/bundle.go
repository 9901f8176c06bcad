package ray

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/hitmap"
	"github.com/dd0wney/cluso-opticbench/pkg/parallel"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

// Bundle is an ordered set of rays sharing an id and a bounce level.
// Bundles created by reflection get a fresh id and the next bounce level.
type Bundle struct {
	id     uuid.UUID
	parent uuid.UUID
	bounce int
	rays   []Ray
}

// NewBundle returns a bundle with a fresh id holding the given rays.
func NewBundle(rays ...Ray) *Bundle {
	return &Bundle{id: uuid.New(), rays: append([]Ray(nil), rays...)}
}

// ID returns the bundle id.
func (b *Bundle) ID() uuid.UUID {
	if b == nil {
		return uuid.Nil
	}
	return b.id
}

// Parent returns the id of the bundle this one was reflected from.
func (b *Bundle) Parent() uuid.UUID { return b.parent }

// Bounce returns the bounce level.
func (b *Bundle) Bounce() int { return b.bounce }

// Len returns the number of rays.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.rays)
}

// Rays returns the rays. The slice is shared with the bundle.
func (b *Bundle) Rays() []Ray { return b.rays }

// Add appends a ray.
func (b *Bundle) Add(r Ray) { b.rays = append(b.rays, r) }

// Merge appends the rays of o.
func (b *Bundle) Merge(o *Bundle) {
	if o != nil {
		b.rays = append(b.rays, o.rays...)
	}
}

// Clone returns a deep copy with the same id.
func (b *Bundle) Clone() *Bundle {
	c := *b
	c.rays = append([]Ray(nil), b.rays...)
	return &c
}

// child returns an empty bundle reflected from b.
func (b *Bundle) child() *Bundle {
	return &Bundle{id: uuid.New(), parent: b.id, bounce: b.bounce + 1}
}

// compact removes invalid rays and returns how many were removed.
func (b *Bundle) compact() int {
	n := 0
	for _, r := range b.rays {
		if r.Valid {
			b.rays[n] = r
			n++
		}
	}
	dropped := len(b.rays) - n
	clear(b.rays[n:])
	b.rays = b.rays[:n]
	return dropped
}

// TotalEnergy sums the energies of all valid rays.
func (b *Bundle) TotalEnergy() units.Energy {
	var sum, c float64
	for _, r := range b.rays {
		if !r.Valid {
			continue
		}
		y := r.Energy.Joules() - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return units.Joule(sum)
}

// Centroid returns the mean position of the valid rays.
func (b *Bundle) Centroid() (geom.Vec3, bool) {
	var sum geom.Vec3
	n := 0
	for _, r := range b.rays {
		if r.Valid {
			sum = sum.Add(r.Position)
			n++
		}
	}
	if n == 0 {
		return geom.Vec3{}, false
	}
	return sum.Scale(1 / float64(n)), true
}

// EnergyCentroid returns the energy weighted mean position.
func (b *Bundle) EnergyCentroid() (geom.Vec3, bool) {
	var sum geom.Vec3
	var w float64
	for _, r := range b.rays {
		if r.Valid {
			sum = sum.Add(r.Position.Scale(r.Energy.Joules()))
			w += r.Energy.Joules()
		}
	}
	if w == 0 {
		return geom.Vec3{}, false
	}
	return sum.Scale(1 / w), true
}

// RMSRadius returns the transverse RMS distance of the valid rays from
// their centroid.
func (b *Bundle) RMSRadius() (units.Length, bool) {
	c, ok := b.Centroid()
	if !ok {
		return 0, false
	}
	var sum float64
	n := 0
	for _, r := range b.rays {
		if r.Valid {
			d := r.Position.XY().Sub(c.XY())
			sum += d.X*d.X + d.Y*d.Y
			n++
		}
	}
	return units.Meter(math.Sqrt(sum / float64(n))), true
}

// GeometricRadius returns the largest transverse distance of a valid ray
// from the centroid.
func (b *Bundle) GeometricRadius() (units.Length, bool) {
	c, ok := b.Centroid()
	if !ok {
		return 0, false
	}
	var r2 float64
	for _, r := range b.rays {
		if r.Valid {
			r2 = max(r2, r.Position.XY().Sub(c.XY()).Norm())
		}
	}
	return units.Meter(r2), true
}

// Wavelengths returns the distinct wavelengths of the valid rays in
// ascending order.
func (b *Bundle) Wavelengths() []units.Length {
	seen := make(map[units.Length]struct{})
	var out []units.Length
	for _, r := range b.rays {
		if _, ok := seen[r.Wavelength]; r.Valid && !ok {
			seen[r.Wavelength] = struct{}{}
			out = append(out, r.Wavelength)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ToSpectrum bins the ray energies into a spectrum of the given resolution.
func (b *Bundle) ToSpectrum(resolution units.Length) (*spectrum.Spectrum, error) {
	energies := make(map[units.Length]units.Energy)
	for _, r := range b.rays {
		if r.Valid {
			energies[r.Wavelength] += r.Energy
		}
	}
	wls := b.Wavelengths()
	lines := make([]spectrum.Line, len(wls))
	for i, wl := range wls {
		lines[i] = spectrum.Line{Wavelength: wl, Energy: energies[wl]}
	}
	return spectrum.FromLaserLines(lines, resolution)
}

// forEach runs fn over all valid rays, in parallel for large bundles.
func (b *Bundle) forEach(ctx context.Context, fn func(i int, r *Ray) error) error {
	return parallel.ForEach(ctx, len(b.rays), 0, func(i int) error {
		if !b.rays[i].Valid {
			return nil
		}
		return fn(i, &b.rays[i])
	})
}

// PropagateAlongZ advances every valid ray by distance along z.
func (b *Bundle) PropagateAlongZ(distance units.Length) error {
	return b.forEach(context.Background(), func(i int, r *Ray) error {
		if err := r.PropagateAlongZ(distance); err != nil {
			return fmt.Errorf("ray %d: %w", i, err)
		}
		return nil
	})
}

// PropagateToPlane moves every valid ray onto the plane at the given z.
func (b *Bundle) PropagateToPlane(z units.Length) error {
	return b.forEach(context.Background(), func(i int, r *Ray) error {
		if err := r.PropagateToPlane(z); err != nil {
			return fmt.Errorf("ray %d: %w", i, err)
		}
		return nil
	})
}

// Advance propagates the rays onto the plane z = distance and moves the
// frame origin there, so that z = 0 is the entrance plane of the next
// node.
func (b *Bundle) Advance(distance units.Length) error {
	if !distance.IsFinite() || distance < 0 {
		return fmt.Errorf("%v: %w", distance, ErrInvalidDistance)
	}
	if err := b.PropagateToPlane(distance); err != nil {
		return err
	}
	b.Shift(-distance)
	return nil
}

// Shift moves all rays along z without changing their path length. It
// translates the frame origin to z = -dz.
func (b *Bundle) Shift(dz units.Length) {
	for i := range b.rays {
		b.rays[i].Position.Z += dz.Meters()
	}
}

// RefractParaxial applies an ideal thin lens at the z = 0 plane of the
// current frame. Rays not reaching the plane are dropped.
func (b *Bundle) RefractParaxial(f units.Length) (dropped int, err error) {
	plane := surface.New("paraxial", surface.Plane{})
	err = b.forEach(context.Background(), func(i int, r *Ray) error {
		point, _, _, ok := plane.Intersect(r.Position, r.Direction)
		if !ok {
			r.Valid = false
			return nil
		}
		r.PropagateTo(point)
		if err := r.RefractParaxial(f); err != nil {
			return fmt.Errorf("ray %d: %w", i, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return b.compact(), nil
}

type interaction struct {
	child *Ray
	hit   *hitmap.HitPoint
}

// record stores the hits in ray order and collects the reflected children.
func (b *Bundle) record(s *surface.OpticSurface, results []interaction) (*Bundle, error) {
	reflected := b.child()
	for _, res := range results {
		if res.hit != nil {
			if err := s.AddHit(b.bounce, b.id, *res.hit); err != nil {
				return nil, err
			}
		}
		if res.child != nil && res.child.Energy > 0 {
			reflected.rays = append(reflected.rays, *res.child)
		}
	}
	return reflected, nil
}

// RefractOnSurface refracts every ray at s into a medium of index n2 and
// records the hits on the surface. It returns the bundle of reflected
// children and the number of rays that missed or were blocked.
func (b *Bundle) RefractOnSurface(ctx context.Context, s *surface.OpticSurface, n2 func(units.Length) (float64, error)) (*Bundle, int, error) {
	results := make([]interaction, len(b.rays))
	err := b.forEach(ctx, func(i int, r *Ray) error {
		n, err := n2(r.Wavelength)
		if err != nil {
			return fmt.Errorf("ray %d: %w", i, err)
		}
		child, hit, err := r.RefractOnSurface(s, n)
		if err != nil {
			return fmt.Errorf("ray %d: %w", i, err)
		}
		results[i] = interaction{child, hit}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	reflected, err := b.record(s, results)
	if err != nil {
		return nil, 0, err
	}
	return reflected, b.compact(), nil
}

// ReflectOnSurface mirrors every ray at s, records the hits and returns the
// number of rays that missed or were blocked.
func (b *Bundle) ReflectOnSurface(ctx context.Context, s *surface.OpticSurface, reflectivity float64) (int, error) {
	results := make([]interaction, len(b.rays))
	err := b.forEach(ctx, func(i int, r *Ray) error {
		hit, err := r.ReflectOnSurface(s, reflectivity)
		results[i] = interaction{hit: hit}
		return err
	})
	if err != nil {
		return 0, err
	}
	if _, err := b.record(s, results); err != nil {
		return 0, err
	}
	return b.compact(), nil
}

// DiffractOnSurface sends every ray into the given grating order.
func (b *Bundle) DiffractOnSurface(ctx context.Context, s *surface.OpticSurface, grating geom.Vec3, order int) (int, error) {
	results := make([]interaction, len(b.rays))
	err := b.forEach(ctx, func(i int, r *Ray) error {
		hit, err := r.DiffractOnSurface(s, grating, order)
		results[i] = interaction{hit: hit}
		return err
	})
	if err != nil {
		return 0, err
	}
	if _, err := b.record(s, results); err != nil {
		return 0, err
	}
	return b.compact(), nil
}

// RecordHits records the valid rays where they cross the z = 0 plane of s
// without changing them. Rays that never cross the plane are not
// recorded.
func (b *Bundle) RecordHits(s *surface.OpticSurface) error {
	for _, r := range b.rays {
		if !r.Valid {
			continue
		}
		_, _, local, ok := s.Intersect(r.Position, r.Direction)
		if !ok {
			continue
		}
		hp, err := hitmap.NewEnergyHit(local, r.Energy)
		if err != nil {
			return err
		}
		if err := s.AddHit(b.bounce, b.id, hp); err != nil {
			return err
		}
	}
	return nil
}

// Apodize applies an aperture function given in the bundle frame. Rays
// with zero transmission are removed; the count is returned.
func (b *Bundle) Apodize(transmission func(geom.Point2) float64) int {
	for i := range b.rays {
		r := &b.rays[i]
		if !r.Valid {
			continue
		}
		t := transmission(r.Position.XY())
		if t <= 0 {
			r.Valid = false
			continue
		}
		r.Energy = r.Energy.Scale(t)
	}
	return b.compact()
}

// Transmit scales each ray energy by a wavelength dependent transmission.
func (b *Bundle) Transmit(t func(units.Length) (float64, error)) error {
	for i := range b.rays {
		r := &b.rays[i]
		if !r.Valid {
			continue
		}
		v, err := t(r.Wavelength)
		if err != nil {
			return fmt.Errorf("ray %d at %v: %w", i, r.Wavelength, err)
		}
		r.Energy = r.Energy.Scale(v)
	}
	return nil
}

// Split keeps the fraction ratio(λ) of every ray energy and returns a copy
// of the bundle with the remainder. The copy gets a fresh id.
func (b *Bundle) Split(ratio func(units.Length) (float64, error)) (*Bundle, error) {
	other := b.Clone()
	other.id = uuid.New()
	for i := range b.rays {
		if !b.rays[i].Valid {
			continue
		}
		v, err := ratio(b.rays[i].Wavelength)
		if err != nil {
			return nil, fmt.Errorf("ray %d: %w", i, err)
		}
		if v < 0 || v > 1 || math.IsNaN(v) {
			return nil, fmt.Errorf("split ratio %g: %w", v, ErrInvalidRay)
		}
		e := b.rays[i].Energy
		b.rays[i].Energy = e.Scale(v)
		other.rays[i].Energy = e.Scale(1 - v)
	}
	return other, nil
}

// FilterEnergy removes rays with less than threshold energy.
func (b *Bundle) FilterEnergy(threshold units.Energy) int {
	for i := range b.rays {
		if b.rays[i].Energy < threshold {
			b.rays[i].Valid = false
		}
	}
	return b.compact()
}

// DropNonForward removes rays that do not travel along +z. They can no
// longer reach the next node of an unfolded frame.
func (b *Bundle) DropNonForward() int {
	for i := range b.rays {
		if b.rays[i].Direction.Z <= 0 {
			b.rays[i].Valid = false
		}
	}
	return b.compact()
}

// FilterBounces removes rays with more than limit bounces.
func (b *Bundle) FilterBounces(limit int) int {
	for i := range b.rays {
		if b.rays[i].Bounces > limit {
			b.rays[i].Valid = false
		}
	}
	return b.compact()
}

// FilterRefractions removes rays with more than limit refractions.
func (b *Bundle) FilterRefractions(limit int) int {
	for i := range b.rays {
		if b.rays[i].Refractions > limit {
			b.rays[i].Valid = false
		}
	}
	return b.compact()
}

// Transform maps all rays into the enclosing frame of iso.
func (b *Bundle) Transform(iso geom.Isometry) *Bundle {
	out := b.Clone()
	for i := range out.rays {
		out.rays[i] = out.rays[i].Transform(iso)
	}
	return out
}

// InverseTransform maps all rays into the local frame of iso.
func (b *Bundle) InverseTransform(iso geom.Isometry) *Bundle {
	out := b.Clone()
	for i := range out.rays {
		out.rays[i] = out.rays[i].InverseTransform(iso)
	}
	return out
}

// FlipZ mirrors all rays at the z = 0 plane.
func (b *Bundle) FlipZ() *Bundle {
	out := b.Clone()
	for i := range out.rays {
		out.rays[i] = out.rays[i].FlipZ()
	}
	return out
}
