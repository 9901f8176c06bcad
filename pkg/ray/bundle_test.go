package ray

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-opticbench/pkg/coating"
	"github.com/dd0wney/cluso-opticbench/pkg/distribution"
	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/surface"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	pos, err := distribution.NewHexapolar(units.Millimeter(5), 3)
	require.NoError(t, err)
	en, err := distribution.NewUniform(units.Joule(1))
	require.NoError(t, err)
	sp, err := distribution.NewLaserLines(
		spectrum.Line{Wavelength: units.Nanometer(1054), Energy: units.Joule(1)},
		spectrum.Line{Wavelength: units.Nanometer(527), Energy: units.Joule(1)},
	)
	require.NoError(t, err)
	b, err := NewCollimatedBundle(pos, en, sp)
	require.NoError(t, err)
	return b
}

func constIndex(n float64) func(units.Length) (float64, error) {
	return func(units.Length) (float64, error) { return n, nil }
}

func TestCollimatedBundle(t *testing.T) {
	b := testBundle(t)
	assert.Equal(t, 74, b.Len())
	assert.InDelta(t, 1, b.TotalEnergy().Joules(), 1e-12)
	assert.Equal(t, []units.Length{units.Nanometer(527), units.Nanometer(1054)}, b.Wavelengths())
	for _, r := range b.Rays() {
		assert.Equal(t, geom.UnitZ(), r.Direction)
		assert.Zero(t, r.Position.Z)
	}

	c, ok := b.Centroid()
	require.True(t, ok)
	assert.True(t, c.ApproxEqual(geom.Vec3{}, 1e-12))
	gr, ok := b.GeometricRadius()
	require.True(t, ok)
	assert.InDelta(t, 5e-3, gr.Meters(), 1e-12)
	rms, ok := b.RMSRadius()
	require.True(t, ok)
	assert.Less(t, rms, gr)
}

func TestPointSourceBundle(t *testing.T) {
	pos, err := distribution.NewHexapolar(units.Millimeter(1), 1)
	require.NoError(t, err)
	en, err := distribution.NewUniform(units.Joule(1))
	require.NoError(t, err)
	sp, err := distribution.NewSingleLine(units.Nanometer(633))
	require.NoError(t, err)

	b, err := NewPointSourceBundle(pos, en, sp, units.Millimeter(10))
	require.NoError(t, err)
	require.NoError(t, b.PropagateAlongZ(units.Millimeter(10)))
	for i, r := range b.Rays() {
		want := pos.Points()[i]
		assert.InDelta(t, want.X, r.Position.X, 1e-15)
		assert.InDelta(t, want.Y, r.Position.Y, 1e-15)
	}

	_, err = NewPointSourceBundle(pos, en, sp, 0)
	assert.ErrorIs(t, err, ErrInvalidRay)
}

func TestAdvanceResetsFrame(t *testing.T) {
	b := testBundle(t)
	require.NoError(t, b.Advance(units.Millimeter(100)))
	for _, r := range b.Rays() {
		assert.InDelta(t, 0, r.Position.Z, 1e-15)
		assert.InDelta(t, 0.1, r.PathLength.Meters(), 1e-15)
	}
	assert.ErrorIs(t, b.Advance(units.Meter(-1)), ErrInvalidDistance)
}

func TestBundleRefractParaxial(t *testing.T) {
	b := testBundle(t)
	dropped, err := b.RefractParaxial(units.Millimeter(100))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.NoError(t, b.PropagateAlongZ(units.Millimeter(100)))
	gr, ok := b.GeometricRadius()
	require.True(t, ok)
	assert.InDelta(t, 0, gr.Meters(), 1e-12)
}

func TestBundleRefractOnSurface(t *testing.T) {
	s := surface.New("front", surface.Plane{})
	cr, err := coating.NewConstantR(0.2)
	require.NoError(t, err)
	s.SetCoating(cr)

	b := testBundle(t)
	for i := range b.rays {
		b.rays[i].Position.Z = -1e-3
	}
	reflected, dropped, err := b.RefractOnSurface(context.Background(), s, constIndex(1.5))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.InDelta(t, 0.8, b.TotalEnergy().Joules(), 1e-12)

	require.NotNil(t, reflected)
	assert.Equal(t, 74, reflected.Len())
	assert.Equal(t, b.ID(), reflected.Parent())
	assert.Equal(t, 1, reflected.Bounce())
	assert.NotEqual(t, b.ID(), reflected.ID())
	assert.InDelta(t, 0.2, reflected.TotalEnergy().Joules(), 1e-12)

	hits := s.HitMap()
	assert.Equal(t, 74, hits.Len())
	assert.Equal(t, []uuid.UUID{b.ID()}, hits.Bundles(0))
	assert.InDelta(t, 1, hits.TotalWeight(), 1e-12)

	_, _, err = b.RefractOnSurface(context.Background(), s, constIndex(math.NaN()))
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestBundleReflectOnSurface(t *testing.T) {
	s := surface.New("mirror", surface.Plane{})
	b := testBundle(t)
	for i := range b.rays {
		b.rays[i].Position.Z = -1e-3
	}
	dropped, err := b.ReflectOnSurface(context.Background(), s, 0.99)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.InDelta(t, 0.99, b.TotalEnergy().Joules(), 1e-12)
	for _, r := range b.Rays() {
		assert.Equal(t, -1.0, r.Direction.Z)
		assert.Equal(t, 1, r.Bounces)
	}
	assert.Equal(t, 74, s.HitMap().Len())
}

func TestSplitConservesEnergy(t *testing.T) {
	b := testBundle(t)
	other, err := b.Split(func(wl units.Length) (float64, error) {
		if wl < units.Nanometer(800) {
			return 0.25, nil
		}
		return 1, nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, b.ID(), other.ID())
	assert.InDelta(t, 1, b.TotalEnergy().Joules()+other.TotalEnergy().Joules(), 1e-12)
	assert.InDelta(t, 0.5*0.75, other.TotalEnergy().Joules(), 1e-12)

	_, err = b.Split(func(units.Length) (float64, error) { return 1.5, nil })
	assert.ErrorIs(t, err, ErrInvalidRay)
}

func TestFilters(t *testing.T) {
	r1 := mustRay(t, geom.Vec3{}, geom.UnitZ(), 1)
	r2 := mustRay(t, geom.Vec3{}, geom.UnitZ(), 1e-13)
	r3 := mustRay(t, geom.Vec3{}, geom.UnitZ(), 1)
	r3.Bounces = 3
	r3.Refractions = 5

	b := NewBundle(r1, r2, r3)
	assert.Equal(t, 1, b.FilterEnergy(units.Picojoule(1)))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 0, b.FilterBounces(3))
	assert.Equal(t, 1, b.FilterRefractions(4))
	assert.Equal(t, 1, b.Len())
}

func TestApodizeAndTransmit(t *testing.T) {
	b := testBundle(t)
	removed := b.Apodize(func(p geom.Point2) float64 {
		if p.X < 0 {
			return 0
		}
		return 0.5
	})
	assert.Positive(t, removed)
	for _, r := range b.Rays() {
		assert.GreaterOrEqual(t, r.Position.X, 0.0)
	}

	before := b.TotalEnergy()
	require.NoError(t, b.Transmit(func(units.Length) (float64, error) { return 0.5, nil }))
	assert.InDelta(t, before.Joules()/2, b.TotalEnergy().Joules(), 1e-12)
}

func TestBundleTransformRoundTrip(t *testing.T) {
	iso := geom.NewIsometry(geom.NewVec3(0, 0.01, 0.2), units.Degree(5), 0, units.Degree(45))
	b := testBundle(t)
	back := b.Transform(iso).InverseTransform(iso)
	require.Equal(t, b.Len(), back.Len())
	assert.Equal(t, b.ID(), back.ID())
	for i := range b.Rays() {
		assert.True(t, back.Rays()[i].Position.ApproxEqual(b.Rays()[i].Position, 1e-12))
	}
	flipped := b.FlipZ()
	assert.Equal(t, -1.0, flipped.Rays()[0].Direction.Z)
	assert.Equal(t, 1.0, b.Rays()[0].Direction.Z)
}

func TestToSpectrum(t *testing.T) {
	b := testBundle(t)
	sp, err := b.ToSpectrum(units.Nanometer(1))
	require.NoError(t, err)
	assert.InDelta(t, 1, sp.TotalEnergy().Joules(), 1e-9)
}

func TestNilBundle(t *testing.T) {
	var b *Bundle
	assert.Zero(t, b.Len())
	assert.Equal(t, uuid.Nil, b.ID())
}

func TestDropNonForward(t *testing.T) {
	fwd, err := New(geom.Vec3{}, geom.NewVec3(0, 0, 1), units.Nanometer(1054), units.Joule(1))
	require.NoError(t, err)
	side, err := New(geom.Vec3{}, geom.NewVec3(1, 0, 0), units.Nanometer(1054), units.Joule(1))
	require.NoError(t, err)
	b := NewBundle(fwd, side)
	assert.Equal(t, 1, b.DropNonForward())
	assert.Equal(t, 1, b.Len())
	require.NoError(t, b.Advance(units.Millimeter(1)))
}
