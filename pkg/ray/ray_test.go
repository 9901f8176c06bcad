package ray

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-opticbench/pkg/aperture"
	"github.com/dd0wney/cluso-opticbench/pkg/coating"
	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

var wl = units.Nanometer(1054)

func mustRay(t *testing.T, pos, dir geom.Vec3, e float64) Ray {
	t.Helper()
	r, err := New(pos, dir, wl, units.Joule(e))
	require.NoError(t, err)
	return r
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		pos  geom.Vec3
		dir  geom.Vec3
		wl   units.Length
		e    units.Energy
	}{
		{"zero direction", geom.Vec3{}, geom.Vec3{}, wl, units.Joule(1)},
		{"nan position", geom.NewVec3(math.NaN(), 0, 0), geom.UnitZ(), wl, units.Joule(1)},
		{"zero wavelength", geom.Vec3{}, geom.UnitZ(), 0, units.Joule(1)},
		{"negative energy", geom.Vec3{}, geom.UnitZ(), wl, units.Joule(-1)},
		{"infinite energy", geom.Vec3{}, geom.UnitZ(), wl, units.Joule(math.Inf(1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pos, tt.dir, tt.wl, tt.e)
			assert.ErrorIs(t, err, ErrInvalidRay)
		})
	}

	r, err := New(geom.Vec3{}, geom.NewVec3(0, 0, 2), wl, 0)
	require.NoError(t, err)
	assert.Equal(t, geom.UnitZ(), r.Direction)
	assert.Equal(t, 1.0, r.Index)
	assert.True(t, r.Valid)
}

func TestPropagateAlongZ(t *testing.T) {
	r := mustRay(t, geom.Vec3{}, geom.NewVec3(1, 0, 1), 1)
	require.NoError(t, r.PropagateAlongZ(units.Meter(1)))
	assert.True(t, r.Position.ApproxEqual(geom.NewVec3(1, 0, 1), 1e-12))
	assert.InDelta(t, math.Sqrt2, r.PathLength.Meters(), 1e-12)

	r.Index = 1.5
	before := r.PathLength
	require.NoError(t, r.PropagateAlongZ(units.Meter(1)))
	assert.InDelta(t, 1.5*math.Sqrt2, (r.PathLength - before).Meters(), 1e-12)

	assert.ErrorIs(t, r.PropagateAlongZ(units.Meter(-1)), ErrInvalidDistance)
	assert.ErrorIs(t, r.PropagateAlongZ(units.Meter(math.NaN())), ErrInvalidDistance)

	side := mustRay(t, geom.Vec3{}, geom.NewVec3(1, 0, 0), 1)
	assert.ErrorIs(t, side.PropagateAlongZ(units.Meter(1)), ErrNoZComponent)
	assert.NoError(t, side.PropagateAlongZ(0))
}

func TestRefractParaxialFocuses(t *testing.T) {
	f := units.Millimeter(100)
	for _, y := range []float64{-2e-3, 0, 1e-3, 5e-3} {
		r := mustRay(t, geom.NewVec3(0, y, 0), geom.UnitZ(), 1)
		require.NoError(t, r.RefractParaxial(f))
		assert.Equal(t, 1, r.Refractions)
		require.NoError(t, r.PropagateAlongZ(f))
		assert.InDelta(t, 0, r.Position.Y, 1e-15)
	}

	r := mustRay(t, geom.Vec3{}, geom.UnitZ(), 1)
	assert.ErrorIs(t, r.RefractParaxial(0), ErrInvalidFocalLength)
	assert.ErrorIs(t, r.RefractParaxial(units.Meter(math.Inf(-1))), ErrInvalidFocalLength)
}

func TestRefractOnSurfaceSnell(t *testing.T) {
	s := surface.New("glass", surface.Plane{})
	cr, err := coating.NewConstantR(0.1)
	require.NoError(t, err)
	s.SetCoating(cr)

	in := units.Degree(30).Radians()
	r := mustRay(t, geom.NewVec3(0, -math.Tan(in), -1), geom.NewVec3(0, math.Sin(in), math.Cos(in)), 1)
	child, hit, err := r.RefractOnSurface(s, 1.5)
	require.NoError(t, err)
	require.NotNil(t, child)
	require.NotNil(t, hit)

	assert.True(t, r.Valid)
	assert.InDelta(t, 0, r.Position.Z, 1e-15)
	assert.InDelta(t, math.Sin(in)/1.5, r.Direction.Y, 1e-12)
	assert.InDelta(t, 0.9, r.Energy.Joules(), 1e-15)
	assert.Equal(t, 1.5, r.Index)
	assert.Equal(t, 1, r.Refractions)

	assert.InDelta(t, 0.1, child.Energy.Joules(), 1e-15)
	assert.InDelta(t, -math.Cos(in), child.Direction.Z, 1e-12)
	assert.InDelta(t, math.Sin(in), child.Direction.Y, 1e-12)
	assert.Equal(t, 1, child.Bounces)
	assert.Equal(t, 1.0, child.Index)

	assert.InDelta(t, 1.0, hit.Weight, 1e-15)
	assert.InDelta(t, 1/math.Cos(in), r.PathLength.Meters(), 1e-12)
}

func TestRefractOnSurfaceFresnelNormalIncidence(t *testing.T) {
	s := surface.New("glass", surface.Plane{})
	s.SetCoating(coating.Fresnel{})
	r := mustRay(t, geom.NewVec3(0, 0, -1), geom.UnitZ(), 1)
	child, _, err := r.RefractOnSurface(s, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.04, child.Energy.Joules(), 1e-12)
	assert.InDelta(t, 0.96, r.Energy.Joules(), 1e-12)
	assert.InDelta(t, r.Energy.Joules()+child.Energy.Joules(), 1, 1e-15)
}

func TestRefractOnSurfaceTotalInternalReflection(t *testing.T) {
	s := surface.New("exit", surface.Plane{})
	in := units.Degree(60).Radians()
	r := mustRay(t, geom.NewVec3(0, 0, -1), geom.NewVec3(0, math.Sin(in), math.Cos(in)), 2)
	r.Index = 1.5

	child, _, err := r.RefractOnSurface(s, 1)
	require.NoError(t, err)
	assert.False(t, r.Valid)
	require.NotNil(t, child)
	assert.Equal(t, units.Joule(2), child.Energy)
	assert.Less(t, child.Direction.Z, 0.0)
}

func TestRefractOnSurfaceMissesAndBlocks(t *testing.T) {
	s := surface.New("front", surface.Plane{})
	r := mustRay(t, geom.NewVec3(0, 0, 1), geom.UnitZ(), 1)
	child, hit, err := r.RefractOnSurface(s, 1.5)
	require.NoError(t, err)
	assert.Nil(t, child)
	assert.Nil(t, hit)
	assert.False(t, r.Valid)

	circle, err := aperture.NewCircle(units.Millimeter(0.5), geom.Point2{})
	require.NoError(t, err)
	s.SetAperture(circle)
	r = mustRay(t, geom.NewVec3(1e-3, 0, -1), geom.UnitZ(), 1)
	child, _, err = r.RefractOnSurface(s, 1.5)
	require.NoError(t, err)
	assert.Nil(t, child)
	assert.False(t, r.Valid)

	r = mustRay(t, geom.NewVec3(0, 0, -1), geom.UnitZ(), 1)
	_, _, err = r.RefractOnSurface(s, 0.5)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestReflectOnSurface(t *testing.T) {
	s := surface.New("mirror", surface.Plane{})
	r := mustRay(t, geom.NewVec3(0, 0, -1), geom.NewVec3(0, 1, 1), 1)
	hit, err := r.ReflectOnSurface(s, 0.5)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.True(t, r.Direction.ApproxEqual(geom.NewVec3(0, 1, -1).Normalize(), 1e-12))
	assert.Equal(t, units.Joule(0.5), r.Energy)
	assert.Equal(t, 1, r.Bounces)

	_, err = r.ReflectOnSurface(s, 1.5)
	assert.Error(t, err)
}

func TestDiffractOnSurface(t *testing.T) {
	s := surface.New("grating", surface.Plane{})
	period := 1e-6 / 1.2 // 1200 lines/mm
	g := geom.NewVec3(2*math.Pi/period, 0, 0)

	r := mustRay(t, geom.NewVec3(0, 0, -1), geom.UnitZ(), 1)
	_, err := r.DiffractOnSurface(s, g, 0)
	require.NoError(t, err)
	assert.True(t, r.Direction.ApproxEqual(geom.NewVec3(0, 0, -1), 1e-12))

	r = mustRay(t, geom.NewVec3(0, 0, -1), geom.UnitZ(), 1)
	r.Wavelength = units.Nanometer(500)
	_, err = r.DiffractOnSurface(s, g, 1)
	require.NoError(t, err)
	require.True(t, r.Valid)
	// grating equation: sin θ = m λ / d
	assert.InDelta(t, 0.5e-6/period, r.Direction.X, 1e-12)
	assert.Less(t, r.Direction.Z, 0.0)

	r = mustRay(t, geom.NewVec3(0, 0, -1), geom.UnitZ(), 1)
	_, err = r.DiffractOnSurface(s, g, 2)
	require.NoError(t, err)
	assert.False(t, r.Valid, "second order of 1054 nm at 1200 l/mm is evanescent")
}

func TestTransformRoundTrip(t *testing.T) {
	iso := geom.NewIsometry(geom.NewVec3(1, 2, 3), units.Degree(10), units.Degree(20), units.Degree(30))
	r := mustRay(t, geom.NewVec3(0.1, 0.2, 0.3), geom.NewVec3(0, 0.1, 1), 1)
	back := r.Transform(iso).InverseTransform(iso)
	assert.True(t, back.Position.ApproxEqual(r.Position, 1e-12))
	assert.True(t, back.Direction.ApproxEqual(r.Direction, 1e-12))

	f := r.FlipZ()
	assert.Equal(t, -r.Position.Z, f.Position.Z)
	assert.Equal(t, -r.Direction.Z, f.Direction.Z)
}

func TestPropagateToPlane(t *testing.T) {
	r := mustRay(t, geom.NewVec3(0, 0, 0.5), geom.NewVec3(0, 1, 1), 1)
	require.NoError(t, r.PropagateToPlane(units.Meter(1.5)))
	assert.InDelta(t, 1, r.Position.Y, 1e-12)
	assert.Equal(t, 1.5, r.Position.Z)
	assert.InDelta(t, math.Sqrt2, r.PathLength.Meters(), 1e-12)

	// behind the ray: moves back and shortens the path
	require.NoError(t, r.PropagateToPlane(units.Meter(0.5)))
	assert.InDelta(t, 0, r.Position.Y, 1e-12)
	assert.InDelta(t, 0, r.PathLength.Meters(), 1e-12)

	back := mustRay(t, geom.Vec3{}, geom.NewVec3(0, 0, -1), 1)
	assert.ErrorIs(t, back.PropagateToPlane(units.Meter(1)), ErrNoZComponent)
}
