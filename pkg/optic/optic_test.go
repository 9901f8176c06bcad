package optic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-opticbench/pkg/geom"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/spectrum"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

func axisBundle(t *testing.T, pos, dir geom.Vec3) *ray.Bundle {
	t.Helper()
	r, err := ray.New(pos, dir, units.Nanometer(1054), units.Joule(1))
	require.NoError(t, err)
	return ray.NewBundle(r)
}

func TestLightResultAccessors(t *testing.T) {
	s, err := spectrum.HeNe(units.Joule(2))
	require.NoError(t, err)
	b := axisBundle(t, geom.Vec3{}, geom.UnitZ())

	in := LightResult{
		"a": EnergyData(s),
		"b": RayData(b),
		"c": GhostData([]*ray.Bundle{b, b}),
	}
	assert.Equal(t, []string{"a", "b", "c"}, in.Ports())
	assert.InDelta(t, 5.0, in.TotalEnergy().Joules(), 1e-9)

	got, ok, err := in.Spectrum("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, s, got)

	_, ok, err = in.Spectrum("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = in.Spectrum("b")
	assert.ErrorIs(t, err, ErrData)
	_, _, err = in.Bundle("c")
	assert.ErrorIs(t, err, ErrData)
	_, _, err = in.Ghosts("a")
	assert.ErrorIs(t, err, ErrData)

	gs, ok, err := in.Ghosts("c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, gs, 2)
	assert.Equal(t, GhostKind, in["c"].Kind())
	assert.Equal(t, NoData, LightData{}.Kind())
}

func TestPortSet(t *testing.T) {
	p := NewPortSet()
	require.NoError(t, p.Add("input_1", Input, nil))
	require.NoError(t, p.Add("input_2", Input, nil))
	require.NoError(t, p.Add("output_1", Output, nil))
	assert.Error(t, p.Add("input_1", Output, nil))
	assert.Error(t, p.Add("", Output, nil))

	assert.Equal(t, []string{"input_1", "input_2"}, p.Incoming(Forward))
	assert.Equal(t, []string{"output_1"}, p.Outgoing(Forward))
	assert.Equal(t, []string{"output_1"}, p.Incoming(Backward))
	assert.Equal(t, []string{"input_1", "input_2"}, p.Outgoing(Backward))

	role, ok := p.Role("input_1", Backward)
	require.True(t, ok)
	assert.Equal(t, Output, role)
	_, ok = p.Role("nope", Forward)
	assert.False(t, ok)

	assert.Len(t, p.Surfaces(), 3)
	assert.Equal(t, 3, p.Len())
}

func TestEffectiveDirection(t *testing.T) {
	assert.Equal(t, Forward, Effective(false, Forward))
	assert.Equal(t, Backward, Effective(true, Forward))
	assert.Equal(t, Forward, Effective(true, Backward))
}

func TestBase(t *testing.T) {
	b := NewBase("dummy", "")
	assert.Equal(t, "dummy", b.Name())
	require.NoError(t, b.Properties().Set(PropName, "meter"))
	assert.Equal(t, "meter", b.Name())
	assert.True(t, b.Isometry().IsIdentity(0))

	err := b.Invalid("set", errBoom)
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "meter")
	assert.True(t, IsAnalysis(b.Fail("analyze", errBoom)))
	assert.Panics(t, func() {
		b.MustPort("x", Input, nil)
		b.MustPort("x", Input, nil)
	})
}

func TestConfigs(t *testing.T) {
	rc := DefaultRayTraceConfig()
	require.NoError(t, rc.Validate())
	rc.MaxBounces = -1
	assert.True(t, IsConfiguration(rc.Validate()))

	gc := DefaultGhostFocusConfig()
	assert.Equal(t, 1, gc.MaxBounces)
	require.NoError(t, gc.Validate())

	low, err := ray.New(geom.Vec3{}, geom.UnitZ(), units.Nanometer(1054), units.Picojoule(0.5))
	require.NoError(t, err)
	high, err := ray.New(geom.Vec3{}, geom.UnitZ(), units.Nanometer(1054), units.Joule(1))
	require.NoError(t, err)
	b := ray.NewBundle(low, high)
	assert.Equal(t, 1, DefaultRayTraceConfig().Filter(b))
	assert.Equal(t, 1, b.Len())
	assert.Zero(t, DefaultRayTraceConfig().Filter(nil))

	for _, s := range []string{"energy", "Ray-Trace", "ghost_focus"} {
		_, err := ParseMode(s)
		assert.NoError(t, err, s)
	}
	_, err = ParseMode("wave")
	assert.True(t, IsConfiguration(err))
}

func TestFrameBackwardMirrorsNode(t *testing.T) {
	length := units.Millimeter(10)
	iso := geom.NewIsometry(geom.NewVec3(0, 0.001, 0.002), 0, 0, 0)

	fwd := NewFrame(iso, length, Forward)
	in := axisBundle(t, geom.NewVec3(0, 0.001, 0), geom.UnitZ())
	local := fwd.Enter(in)
	assert.InDelta(t, -0.002, local.Rays()[0].Position.Z, 1e-15)

	// seen backwards the node origin lies at the far end of the node
	bwd := NewFrame(iso, length, Backward)
	p := bwd.Iso.InversePoint(geom.NewVec3(0, 0.001, 0.008))
	assert.InDelta(t, 0.01, p.Z, 1e-15)
	assert.InDelta(t, 0.0, p.Y, 1e-15)

	out := fwd.Leave(local)
	assert.InDelta(t, -0.01, out.Rays()[0].Position.Z, 1e-15)

	turned := bwd.Turn(axisBundle(t, geom.NewVec3(0, 0, 0.003), geom.NewVec3(0, 0, -1)))
	assert.InDelta(t, 0.007, turned.Rays()[0].Position.Z, 1e-15)
	assert.InDelta(t, 1.0, turned.Rays()[0].Direction.Z, 1e-15)
}

func TestFrameLeaveReflected(t *testing.T) {
	iso := geom.NewIsometry(geom.Vec3{}, units.Degree(45), 0, 0)
	f := NewFrame(iso, 0, Forward)
	local := f.Enter(axisBundle(t, geom.Vec3{}, geom.UnitZ()))
	d := local.Rays()[0].Direction
	reflected := axisBundle(t, geom.Vec3{}, geom.NewVec3(d.X, d.Y, -d.Z))
	out := f.LeaveReflected(reflected)
	assert.True(t, out.Rays()[0].Direction.ApproxEqual(geom.UnitZ(), 1e-12))
}
