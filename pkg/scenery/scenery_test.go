package scenery

import (
	"context"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-opticbench/pkg/algorithms"
	"github.com/dd0wney/cluso-opticbench/pkg/coating"
	"github.com/dd0wney/cluso-opticbench/pkg/hitmap"
	"github.com/dd0wney/cluso-opticbench/pkg/nodes"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

type recorder struct {
	visited []uuid.UUID
	passes  []optic.Direction
	onNode  func(NodeEvent)
}

func (r *recorder) NodeAnalyzed(ev NodeEvent) {
	r.visited = append(r.visited, ev.Node.ID())
	if r.onNode != nil {
		r.onNode(ev)
	}
}

func (r *recorder) PassDone(_ int, d optic.Direction) { r.passes = append(r.passes, d) }

func source() *nodes.Source {
	return nodes.NewSourceWith("laser", ray.CollimatedSource(units.Millimeter(1), 3, units.Joule(1), units.Nanometer(1054)))
}

func add(t *testing.T, g *Group, n optic.Node) uuid.UUID {
	t.Helper()
	id, err := g.AddNode(n)
	require.NoError(t, err)
	return id
}

func connect(t *testing.T, g *Group, from uuid.UUID, fromPort string, to uuid.UUID, toPort string, d units.Length) {
	t.Helper()
	require.NoError(t, g.Connect(from, fromPort, to, toPort, d))
}

func half(name string) *nodes.IdealFilter {
	return nodes.NewIdealFilterWith(name, nodes.ConstantTransmission(0.5))
}

func TestConnectValidation(t *testing.T) {
	g := NewGroup("bench")
	src := add(t, g, source())
	a := add(t, g, nodes.NewDummy("a"))
	b := add(t, g, nodes.NewDummy("b"))
	c := add(t, g, nodes.NewDummy("c"))
	connect(t, g, src, optic.PortOut, a, optic.PortIn, units.Millimeter(10))
	require.NoError(t, g.MapOutputPort("exit", c, optic.PortOut))

	before := g.Edges()
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"occupied source port", func() error {
			return g.Connect(src, optic.PortOut, b, optic.PortIn, 0)
		}, ErrPortOccupied},
		{"occupied target port", func() error {
			return g.Connect(b, optic.PortOut, a, optic.PortIn, 0)
		}, ErrPortOccupied},
		{"target without input", func() error {
			return g.Connect(b, optic.PortOut, src, optic.PortIn, 0)
		}, ErrPortNotFound},
		{"mapped port", func() error {
			return g.Connect(c, optic.PortOut, b, optic.PortIn, 0)
		}, ErrPortMapped},
		{"self loop", func() error {
			return g.Connect(a, optic.PortOut, a, optic.PortIn, 0)
		}, ErrSelfLoop},
		{"unknown node", func() error {
			return g.Connect(uuid.New(), optic.PortOut, b, optic.PortIn, 0)
		}, ErrNodeNotFound},
		{"unknown port", func() error {
			return g.Connect(a, "output_7", b, optic.PortIn, 0)
		}, ErrPortNotFound},
		{"wrong role", func() error {
			return g.Connect(a, optic.PortIn, b, optic.PortIn, 0)
		}, ErrPortRole},
		{"negative distance", func() error {
			return g.Connect(a, optic.PortOut, b, optic.PortIn, units.Millimeter(-1))
		}, ErrInvalidLength},
		{"map unknown port", func() error {
			return g.MapInputPort("entry", b, "input_9")
		}, ErrPortNotFound},
		{"map connected port", func() error {
			return g.MapInputPort("entry", a, optic.PortIn)
		}, ErrPortOccupied},
		{"map used name", func() error {
			return g.MapInputPort("exit", b, optic.PortIn)
		}, ErrNameTaken},
		{"map twice", func() error {
			return g.MapOutputPort("exit 2", c, optic.PortOut)
		}, ErrPortMapped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, optic.IsConfiguration(err), "%v", err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, g.Edges())
			assert.Len(t, g.OutputMappings(), 1)
			assert.Empty(t, g.InputMappings())
		})
	}
}

func TestMappedPortCannotBeConnected(t *testing.T) {
	g := NewGroup("bench")
	a := add(t, g, nodes.NewDummy("a"))
	b := add(t, g, nodes.NewDummy("b"))
	require.NoError(t, g.MapOutputPort("exit", a, optic.PortOut))

	err := g.Connect(a, optic.PortOut, b, optic.PortIn, 0)
	assert.ErrorIs(t, err, ErrPortMapped)
	assert.Empty(t, g.Edges())

	port, ok := g.Ports().Get("exit")
	require.True(t, ok)
	assert.Equal(t, optic.Output, port.Role)
	inner, _ := g.nodes[a].node.Ports().Get(optic.PortOut)
	assert.Same(t, inner.Surface, port.Surface)

	require.NoError(t, g.UnmapPort("exit"))
	assert.Zero(t, g.Ports().Len())
	assert.ErrorIs(t, g.UnmapPort("exit"), ErrPortNotFound)
}

func TestDistanceUpdates(t *testing.T) {
	g := NewGroup("bench")
	a := add(t, g, nodes.NewDummy("a"))
	b := add(t, g, nodes.NewDummy("b"))
	connect(t, g, a, optic.PortOut, b, optic.PortIn, units.Millimeter(10))

	require.NoError(t, g.UpdateDistance(a, optic.PortOut, units.Millimeter(25)))
	assert.Equal(t, units.Millimeter(25), g.Edges()[0].Distance)
	assert.ErrorIs(t, g.UpdateDistance(a, optic.PortOut, units.Meter(-1)), ErrInvalidLength)
	assert.ErrorIs(t, g.UpdateDistance(b, optic.PortOut, 0), ErrEdgeNotFound)

	require.NoError(t, g.Disconnect(a, optic.PortOut))
	assert.Empty(t, g.Edges())
	assert.ErrorIs(t, g.Disconnect(a, optic.PortOut), ErrEdgeNotFound)
}

func TestDeleteNodeCascades(t *testing.T) {
	g := NewGroup("bench")
	src := add(t, g, source())
	a := add(t, g, nodes.NewDummy("a"))
	b := add(t, g, nodes.NewDummy("b"))
	connect(t, g, src, optic.PortOut, a, optic.PortIn, 0)
	connect(t, g, a, optic.PortOut, b, optic.PortIn, 0)
	require.NoError(t, g.MapOutputPort("exit", b, optic.PortOut))

	require.NoError(t, g.DeleteNode(b))
	assert.Len(t, g.Edges(), 1)
	assert.Empty(t, g.OutputMappings())
	assert.Zero(t, g.Ports().Len())
	assert.Len(t, g.Nodes(), 2)

	err := g.DeleteNode(b)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.True(t, optic.IsConfiguration(err))

	_, err = g.AddNode(g.nodes[a].node)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

// a source feeding a beam splitter whose outputs reach two meters, one of
// them behind a filter
func splitterBench(t *testing.T) (*Group, *nodes.EnergyMeter, *nodes.EnergyMeter) {
	t.Helper()
	g := NewGroup("bench")
	m1, m2 := nodes.NewEnergyMeter("m1"), nodes.NewEnergyMeter("m2")
	// insertion order deliberately differs from the light path
	meter2 := add(t, g, m2)
	filter := add(t, g, half("filter"))
	meter1 := add(t, g, m1)
	bs := add(t, g, nodes.NewBeamSplitter("bs"))
	src := add(t, g, source())

	connect(t, g, src, optic.PortOut, bs, nodes.PortSplitterIn1, units.Millimeter(100))
	connect(t, g, bs, nodes.PortSplitterOut1, meter1, optic.PortIn, units.Millimeter(50))
	connect(t, g, bs, nodes.PortSplitterOut2, filter, optic.PortIn, units.Millimeter(50))
	connect(t, g, filter, optic.PortOut, meter2, optic.PortIn, units.Millimeter(50))
	return g, m1, m2
}

func TestEnergyVisitsEveryNodeOnce(t *testing.T) {
	g, m1, m2 := splitterBench(t)
	rec := &recorder{}
	_, err := g.Analyze(context.Background(), Run{Mode: optic.ModeEnergy, Observer: rec})
	require.NoError(t, err)

	require.Len(t, rec.visited, 5)
	for _, n := range g.Nodes() {
		assert.Equal(t, 1, countOf(rec.visited, n.ID()), n.Name())
	}
	for _, e := range g.Edges() {
		assert.Less(t, slices.Index(rec.visited, e.From), slices.Index(rec.visited, e.To))
	}
	assert.InDelta(t, 0.5, m1.Energy().Joules(), 1e-12)
	assert.InDelta(t, 0.25, m2.Energy().Joules(), 1e-12)

	// a second run starts from reset detectors
	_, err = g.Analyze(context.Background(), Run{Mode: optic.ModeEnergy})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m1.Energy().Joules(), 1e-12)
}

func countOf(ids []uuid.UUID, id uuid.UUID) int {
	n := 0
	for _, v := range ids {
		if v == id {
			n++
		}
	}
	return n
}

func TestCycleIsConfigurationError(t *testing.T) {
	g := NewGroup("loop")
	a := add(t, g, nodes.NewDummy("a"))
	b := add(t, g, nodes.NewDummy("b"))
	connect(t, g, a, optic.PortOut, b, optic.PortIn, 0)
	connect(t, g, b, optic.PortOut, a, optic.PortIn, 0)

	for _, mode := range optic.Modes {
		t.Run(mode.String(), func(t *testing.T) {
			rec := &recorder{}
			run := Run{
				Mode:       mode,
				RayTrace:   optic.DefaultRayTraceConfig(),
				GhostFocus: optic.DefaultGhostFocusConfig(),
				Observer:   rec,
			}
			_, err := g.Analyze(context.Background(), run)
			require.Error(t, err)
			assert.True(t, optic.IsConfiguration(err))
			assert.ErrorIs(t, err, algorithms.ErrCycle)
			assert.Empty(t, rec.visited)
		})
	}
}

func TestInvertedGroup(t *testing.T) {
	sub := NewGroup("sub")
	f := add(t, sub, half("filter"))
	require.NoError(t, sub.MapInputPort("in", f, optic.PortIn))
	require.NoError(t, sub.MapOutputPort("out", f, optic.PortOut))
	require.NoError(t, sub.SetInverted(true))

	bench := NewGroup("bench")
	meter := nodes.NewEnergyMeter("meter")
	src := add(t, bench, source())
	s := add(t, bench, sub)
	m := add(t, bench, meter)

	// inverted, the mapped input acts as an output
	err := bench.Connect(src, optic.PortOut, s, "in", 0)
	assert.ErrorIs(t, err, ErrPortRole)

	connect(t, bench, src, optic.PortOut, s, "out", units.Millimeter(10))
	connect(t, bench, s, "in", m, optic.PortIn, units.Millimeter(10))

	rec := &recorder{}
	_, err = bench.Analyze(context.Background(), Run{Mode: optic.ModeEnergy, Observer: rec})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, meter.Energy().Joules(), 1e-12)
	assert.False(t, sub.nodes[f].node.Inverted())
	// the filter inside the group is reported too
	assert.Len(t, rec.visited, 4)
}

func TestNestedGroupRayTrace(t *testing.T) {
	sub := NewGroup("focus")
	lens := add(t, sub, nodes.NewParaxialSurface("lens"))
	require.NoError(t, sub.MapInputPort("in", lens, optic.PortIn))
	require.NoError(t, sub.MapOutputPort("out", lens, optic.PortOut))

	bench := NewGroup("bench")
	spot := nodes.NewSpotDiagram("spot")
	src := add(t, bench, source())
	s := add(t, bench, sub)
	sp := add(t, bench, spot)
	connect(t, bench, src, optic.PortOut, s, "in", units.Millimeter(20))
	connect(t, bench, s, "out", sp, optic.PortIn, units.Millimeter(100))

	var paths [][]string
	rec := &recorder{onNode: func(ev NodeEvent) { paths = append(paths, ev.Path) }}
	_, err := bench.Analyze(context.Background(), Run{Mode: optic.ModeRayTrace, RayTrace: optic.DefaultRayTraceConfig(), Observer: rec})
	require.NoError(t, err)

	stats := spot.Stats()
	assert.Equal(t, 37, stats.Rays)
	assert.Less(t, stats.RMSRadius.Meters(), 1e-12)
	assert.Contains(t, paths, []string{"focus"})
}

func TestReference(t *testing.T) {
	g := NewGroup("double pass")
	meter := nodes.NewEnergyMeter("meter")
	src := add(t, g, source())
	f := add(t, g, half("amplifier"))
	d := add(t, g, nodes.NewDummy("fold"))
	ref, err := g.AddReference(f, "second pass")
	require.NoError(t, err)
	m := add(t, g, meter)

	connect(t, g, src, optic.PortOut, f, optic.PortIn, 0)
	connect(t, g, f, optic.PortOut, d, optic.PortIn, 0)
	connect(t, g, d, optic.PortOut, ref, optic.PortIn, 0)
	connect(t, g, ref, optic.PortOut, m, optic.PortIn, 0)

	_, err = g.Analyze(context.Background(), Run{Mode: optic.ModeEnergy})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, meter.Energy().Joules(), 1e-12)

	_, err = g.AddReference(uuid.New(), "nothing")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	require.NoError(t, g.DeleteNode(f))
	_, err = g.Analyze(context.Background(), Run{Mode: optic.ModeEnergy})
	require.Error(t, err)
	assert.True(t, optic.IsConfiguration(err))
	assert.ErrorIs(t, err, ErrDanglingTarget)
}

func levelWeight(h *hitmap.HitMap, bounce int) float64 {
	var w float64
	for _, id := range h.Bundles(bounce) {
		m, _ := h.RaysHitMap(bounce, id)
		w += m.TotalWeight()
	}
	return w
}

func ghostBench(t *testing.T, coatRear bool) (*Group, *nodes.SpotDiagram) {
	t.Helper()
	g := NewGroup("ghosts")
	plate := nodes.NewWedge("plate")
	front, _ := plate.Ports().Get(optic.PortIn)
	front.Surface.SetCoating(coating.Fresnel{})
	if coatRear {
		rear, _ := plate.Ports().Get(optic.PortOut)
		rear.Surface.SetCoating(coating.Fresnel{})
	}
	spot := nodes.NewSpotDiagram("spot")
	src := add(t, g, source())
	p := add(t, g, plate)
	s := add(t, g, spot)
	connect(t, g, src, optic.PortOut, p, optic.PortIn, units.Millimeter(50))
	connect(t, g, p, optic.PortOut, s, optic.PortIn, units.Millimeter(50))
	return g, spot
}

func TestGhostFocusBounded(t *testing.T) {
	g, spot := ghostBench(t, true)
	cfg := optic.DefaultGhostFocusConfig()
	cfg.MaxBounces = 2
	rec := &recorder{}
	_, err := g.Analyze(context.Background(), Run{Mode: optic.ModeGhostFocus, GhostFocus: cfg, Observer: rec})
	require.NoError(t, err)

	assert.Equal(t, []optic.Direction{optic.Forward, optic.Backward, optic.Forward}, rec.passes)
	h := spot.Surface().HitMap()
	require.Equal(t, 3, h.Bounces())
	assert.InDelta(t, 0.96*0.96, levelWeight(h, 0), 1e-12)
	assert.Zero(t, levelWeight(h, 1))
	assert.InDelta(t, 0.96*0.04*0.04*0.96, levelWeight(h, 2), 1e-12)
	assert.False(t, g.hasReflections())
}

func TestGhostFocusStopsEarly(t *testing.T) {
	g, spot := ghostBench(t, false)
	cfg := optic.DefaultGhostFocusConfig()
	cfg.MaxBounces = 5
	rec := &recorder{}
	_, err := g.Analyze(context.Background(), Run{Mode: optic.ModeGhostFocus, GhostFocus: cfg, Observer: rec})
	require.NoError(t, err)

	// the only reflection leaves towards the source in the second pass
	assert.Len(t, rec.passes, 2)
	assert.Equal(t, 1, spot.Surface().HitMap().Bounces())
}

func TestMutationDuringRun(t *testing.T) {
	g, _, _ := splitterBench(t)
	var errs []error
	rec := &recorder{onNode: func(NodeEvent) {
		_, err := g.AddNode(nodes.NewDummy("late"))
		errs = append(errs, err)
	}}
	_, err := g.Analyze(context.Background(), Run{Mode: optic.ModeEnergy, Observer: rec})
	require.NoError(t, err)
	require.NotEmpty(t, errs)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrRunning)
		assert.True(t, optic.IsConfiguration(err))
	}

	_, err = g.AddNode(nodes.NewDummy("late"))
	assert.NoError(t, err)
}

func TestCancelledAnalysis(t *testing.T) {
	g, m1, _ := splitterBench(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Analyze(ctx, Run{Mode: optic.ModeEnergy})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m1.Energy())
}

func TestAnalyzeRejectsInvalidConfig(t *testing.T) {
	g := NewGroup("empty")
	cfg := optic.DefaultRayTraceConfig()
	cfg.MaxBounces = -1
	_, err := g.Analyze(context.Background(), Run{Mode: optic.ModeRayTrace, RayTrace: cfg})
	assert.True(t, optic.IsConfiguration(err))

	_, err = g.Analyze(context.Background(), Run{Mode: "holography"})
	assert.True(t, optic.IsConfiguration(err))
}

func TestWalkAndCounts(t *testing.T) {
	sub := NewGroup("sub")
	a := add(t, sub, nodes.NewDummy("a"))
	b := add(t, sub, nodes.NewDummy("b"))
	connect(t, sub, a, optic.PortOut, b, optic.PortIn, 0)

	bench := NewGroup("bench")
	src := add(t, bench, source())
	s := add(t, bench, sub)
	require.NoError(t, sub.MapInputPort("in", a, optic.PortIn))
	connect(t, bench, src, optic.PortOut, s, "in", 0)

	var names []string
	bench.Walk(func(path []string, n optic.Node) {
		names = append(names, n.Name())
		if n.Name() == "a" {
			assert.Equal(t, []string{"sub"}, path)
		}
	})
	assert.Equal(t, []string{"laser", "sub", "a", "b"}, names)
	nodeCount, edgeCount := bench.Counts()
	assert.Equal(t, 4, nodeCount)
	assert.Equal(t, 2, edgeCount)

	require.NoError(t, sub.SetExpandView(true))
	assert.True(t, sub.ExpandView())
	n, ok := bench.NodeByName("sub")
	require.True(t, ok)
	assert.Same(t, sub, n)
}
