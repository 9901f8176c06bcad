package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/events"
	"github.com/dd0wney/cluso-opticbench/pkg/logging"
	"github.com/dd0wney/cluso-opticbench/pkg/metrics"
	"github.com/dd0wney/cluso-opticbench/pkg/nodes"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/ray"
	"github.com/dd0wney/cluso-opticbench/pkg/scenery"
	"github.com/dd0wney/cluso-opticbench/pkg/units"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, g.Write(&metric))
	return metric.Gauge.GetValue()
}

// bench is a 19 ray source followed by a half filter, a meter and a
// fluence detector.
func bench(t *testing.T) *scenery.Group {
	t.Helper()
	g := scenery.NewGroup("bench")
	ids := make([]optic.Node, 0, 4)
	ids = append(ids,
		nodes.NewSourceWith("laser", ray.CollimatedSource(units.Millimeter(1), 2, units.Joule(1), units.Nanometer(1064))),
		nodes.NewIdealFilterWith("nd", nodes.ConstantTransmission(0.5)),
		nodes.NewEnergyMeter("meter"),
		nodes.NewFluenceDetector("camera"),
	)
	var prev optic.Node
	for _, n := range ids {
		_, err := g.AddNode(n)
		require.NoError(t, err)
		if prev != nil {
			require.NoError(t, g.Connect(prev.ID(), optic.PortOut, n.ID(), optic.PortIn, units.Millimeter(50)))
		}
		prev = n
	}
	return g
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New("sideways")
	require.Error(t, err)
	assert.True(t, optic.IsConfiguration(err))

	cfg := optic.DefaultRayTraceConfig()
	cfg.AmbientIndex = 0.5
	_, err = New(optic.ModeRayTrace, WithRayTraceConfig(cfg))
	assert.True(t, optic.IsConfiguration(err))

	ghost := optic.DefaultGhostFocusConfig()
	ghost.MaxBounces = 101
	_, err = New(optic.ModeGhostFocus, WithGhostFocusConfig(ghost))
	assert.True(t, optic.IsConfiguration(err))

	a, err := New("ray-trace")
	require.NoError(t, err)
	assert.Equal(t, optic.ModeRayTrace, a.Mode())
}

func TestAnalyzeRecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	a, err := New(optic.ModeRayTrace, WithMetrics(reg))
	require.NoError(t, err)

	rep, err := a.Analyze(context.Background(), bench(t))
	require.NoError(t, err)

	assert.Equal(t, "ray_trace", rep.Mode)
	assert.Positive(t, rep.Duration)
	assert.Empty(t, rep.Failed())
	meter, ok := rep.Node("meter")
	require.True(t, ok)
	assert.InDelta(t, 0.5, meter.Values[nodes.PropEnergy].(units.Energy).Joules(), 1e-12)

	assert.Equal(t, 1.0, counterValue(t, reg.AnalysesTotal.WithLabelValues("ray_trace", StatusSuccess)))
	assert.Equal(t, 1.0, counterValue(t, reg.NodeAnalysesTotal.WithLabelValues(nodes.TypeSource, "ray_trace")))
	assert.Equal(t, 1.0, counterValue(t, reg.NodeAnalysesTotal.WithLabelValues(nodes.TypeEnergyMeter, "ray_trace")))
	assert.Equal(t, 19.0, counterValue(t, reg.RaysTracedTotal.WithLabelValues("ray_trace")))
	assert.Equal(t, 19.0, counterValue(t, reg.HitPointsTotal))
	assert.Equal(t, 1.0, counterValue(t, reg.FluenceEstimationsTotal.WithLabelValues("voronoi")))
	assert.Equal(t, 4.0, gaugeValue(t, reg.GraphNodes))
	assert.Equal(t, 3.0, gaugeValue(t, reg.GraphEdges))
}

func TestAnalyzeFilteredRays(t *testing.T) {
	reg := metrics.NewRegistry()
	cfg := optic.DefaultRayTraceConfig()
	// each of the 19 rays carries 1/19 J
	cfg.MinEnergy = units.Joule(0.1)
	a, err := New(optic.ModeRayTrace, WithMetrics(reg), WithRayTraceConfig(cfg))
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), bench(t))
	require.NoError(t, err)
	assert.Equal(t, 19.0, counterValue(t, reg.RaysDroppedTotal.WithLabelValues("filter")))
}

func TestAnalyzeLogs(t *testing.T) {
	rec := logging.NewRecorder()
	a, err := New(optic.ModeEnergy, WithLogger(rec))
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), bench(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"analysis started", "analysis finished"}, rec.Messages(logging.InfoLevel))
	debug := 0
	for _, e := range rec.Entries() {
		if e.Message == "node analyzed" {
			debug++
		}
	}
	assert.Equal(t, 4, debug)
}

func TestAnalyzeFailure(t *testing.T) {
	reg := metrics.NewRegistry()
	rec := logging.NewRecorder()
	bus := events.NewBus(16)
	defer bus.Close()
	sub, err := bus.Subscribe(context.Background(), events.TopicAnalysisFinished)
	require.NoError(t, err)

	a, err := New(optic.ModeEnergy, WithMetrics(reg), WithLogger(rec), WithPublisher(bus))
	require.NoError(t, err)

	g := bench(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Analyze(ctx, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.Equal(t, 1.0, counterValue(t, reg.AnalysesTotal.WithLabelValues("energy", StatusError)))
	assert.Equal(t, []string{"analysis finished"}, rec.Messages(logging.ErrorLevel))

	select {
	case ev := <-sub.Events():
		assert.NotEmpty(t, ev.Error)
	case <-time.After(time.Second):
		t.Fatal("no finished event")
	}
}

func TestAnalyzePublishesProgress(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()
	sub, err := bus.Subscribe(context.Background(), events.TopicAll)
	require.NoError(t, err)

	a, err := New(optic.ModeRayTrace, WithPublisher(bus))
	require.NoError(t, err)
	rep, err := a.Analyze(context.Background(), bench(t))
	require.NoError(t, err)

	var topics []string
	var resolved []events.Event
	timeout := time.After(time.Second)
	for len(topics) < 6 {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, rep.Run, ev.Run)
			topics = append(topics, ev.Topic)
			if ev.Topic == events.TopicNodeResolved {
				resolved = append(resolved, ev)
			}
		case <-timeout:
			t.Fatalf("received only %v", topics)
		}
	}

	assert.Equal(t, events.TopicAnalysisStarted, topics[0])
	assert.Equal(t, events.TopicAnalysisFinished, topics[5])
	require.Len(t, resolved, 4)
	assert.Equal(t, "laser", resolved[0].Node)
	assert.Equal(t, nodes.TypeSource, resolved[0].NodeType)
	assert.Equal(t, 19, resolved[0].Rays)
	assert.InDelta(t, 0.5, resolved[1].Energy, 1e-12)
}

func TestGhostFocusPublishesPasses(t *testing.T) {
	reg := metrics.NewRegistry()
	a, err := New(optic.ModeGhostFocus, WithMetrics(reg))
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), bench(t))
	require.NoError(t, err)
	// nothing reflects, so the first pass is the only one
	assert.Equal(t, 1.0, counterValue(t, reg.GhostPassesTotal))
}

func TestSpec(t *testing.T) {
	ghost := optic.DefaultGhostFocusConfig()
	ghost.MaxBounces = 3
	a, err := New(optic.ModeGhostFocus, WithGhostFocusConfig(ghost))
	require.NoError(t, err)

	s := a.Spec()
	assert.Nil(t, s.RayTrace)
	require.NotNil(t, s.GhostFocus)

	data, err := yaml.Marshal(s)
	require.NoError(t, err)
	var back Spec
	require.NoError(t, yaml.Unmarshal(data, &back))
	b, err := back.Build()
	require.NoError(t, err)
	assert.Equal(t, a.Mode(), b.Mode())
	assert.Equal(t, ghost, b.GhostFocusConfig())
	assert.Equal(t, optic.DefaultRayTraceConfig(), b.RayTraceConfig())

	tests := []struct {
		name string
		spec Spec
	}{
		{"missing mode", Spec{}},
		{"unknown mode", Spec{Mode: "ghost"}},
		{"bad ray trace", Spec{Mode: optic.ModeRayTrace, RayTrace: &optic.RayTraceConfig{MaxBounces: -1, AmbientIndex: 1}}},
		{"bad ghost focus", Spec{Mode: optic.ModeGhostFocus, GhostFocus: &optic.GhostFocusConfig{MaxBounces: 500, RayTrace: optic.DefaultRayTraceConfig()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build()
			require.Error(t, err)
			assert.True(t, optic.IsConfiguration(err))
		})
	}
}
