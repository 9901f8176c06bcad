// Package analyzer runs analyses on a scenery and turns the results into
// reports. It adds the operational concerns around the graph interpreter:
// logging, metrics and progress events.
package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/events"
	"github.com/dd0wney/cluso-opticbench/pkg/logging"
	"github.com/dd0wney/cluso-opticbench/pkg/metrics"
	"github.com/dd0wney/cluso-opticbench/pkg/nodes"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/report"
	"github.com/dd0wney/cluso-opticbench/pkg/scenery"
)

// Analysis outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Analyzer runs one analysis mode with a fixed configuration. An Analyzer
// may be used for several sceneries, one at a time per scenery.
type Analyzer struct {
	mode       optic.Mode
	rayTrace   optic.RayTraceConfig
	ghostFocus optic.GhostFocusConfig

	logger    logging.Logger
	metrics   *metrics.Registry
	publisher events.Publisher
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records run metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(a *Analyzer) { a.metrics = r }
}

// WithPublisher publishes progress events on p.
func WithPublisher(p events.Publisher) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.publisher = p
		}
	}
}

// WithRayTraceConfig replaces the default ray filters.
func WithRayTraceConfig(cfg optic.RayTraceConfig) Option {
	return func(a *Analyzer) { a.rayTrace = cfg }
}

// WithGhostFocusConfig replaces the default ghost focus configuration.
func WithGhostFocusConfig(cfg optic.GhostFocusConfig) Option {
	return func(a *Analyzer) { a.ghostFocus = cfg }
}

// New returns an analyzer for mode. The configurations are validated here
// so a misconfigured analyzer never starts a run.
func New(mode optic.Mode, opts ...Option) (*Analyzer, error) {
	m, err := optic.ParseMode(string(mode))
	if err != nil {
		return nil, optic.ConfigError("new analyzer", err)
	}
	a := &Analyzer{
		mode:       m,
		rayTrace:   optic.DefaultRayTraceConfig(),
		ghostFocus: optic.DefaultGhostFocusConfig(),
		logger:     logging.NewNopLogger(),
		publisher:  events.Nop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.rayTrace.Validate(); err != nil {
		return nil, err
	}
	if err := a.ghostFocus.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Mode returns the analysis mode.
func (a *Analyzer) Mode() optic.Mode { return a.mode }

// RayTraceConfig returns the ray filters.
func (a *Analyzer) RayTraceConfig() optic.RayTraceConfig { return a.rayTrace }

// GhostFocusConfig returns the ghost focus configuration.
func (a *Analyzer) GhostFocusConfig() optic.GhostFocusConfig { return a.ghostFocus }

// Analyze runs the analysis on g and collects the node reports. A failing
// node report does not fail the run; it is kept in the report with its
// error.
func (a *Analyzer) Analyze(ctx context.Context, g *scenery.Group) (*report.AnalysisReport, error) {
	run := uuid.New()
	started := time.Now().UTC()
	mode := a.mode.String()
	log := a.logger.With(
		logging.Component("analyzer"),
		logging.Mode(mode),
		logging.String("run", run.String()),
		logging.String("scenery", g.Name()),
	)

	nodeCount, edgeCount := g.Counts()
	a.metrics.SetGraphSize(nodeCount, edgeCount)
	log.Info("analysis started", logging.Int("nodes", nodeCount), logging.Int("edges", edgeCount))
	a.publish(log, events.Event{Topic: events.TopicAnalysisStarted, Run: run, Mode: mode})

	timer := logging.StartTimer(log, "analysis finished")
	obs := &observer{a: a, run: run, mode: mode, log: log}
	_, err := g.Analyze(ctx, scenery.Run{
		Mode:       a.mode,
		RayTrace:   a.rayTrace,
		GhostFocus: a.ghostFocus,
		Observer:   obs,
	})
	if err != nil {
		elapsed := timer.EndError(err)
		a.metrics.RecordAnalysis(mode, StatusError, elapsed)
		a.publish(log, events.Event{Topic: events.TopicAnalysisFinished, Run: run, Mode: mode, Error: err.Error()})
		return nil, err
	}

	rep := report.CollectWith(g, a.mode, func(nr report.NodeReport, d time.Duration) {
		if nr.Type == nodes.TypeFluenceDetector {
			est, _ := nr.Values["estimator"].(string)
			a.metrics.RecordFluenceEstimation(est, d)
		}
		a.metrics.RecordHitPoints(nr.HitPoints)
		if nr.Error != "" {
			log.Warn("node report failed",
				logging.NodeName(nr.Name),
				logging.NodeType(nr.Type),
				logging.String("error", nr.Error))
		}
	})
	elapsed := timer.EndInfo(logging.Count(len(rep.Nodes)), logging.Rays(obs.rays))
	rep.Run = run
	rep.Started = started
	rep.Duration = elapsed.Seconds()

	a.metrics.RecordAnalysis(mode, StatusSuccess, elapsed)
	a.publish(log, events.Event{Topic: events.TopicAnalysisFinished, Run: run, Mode: mode, Rays: obs.rays})
	return rep, nil
}

// publish never fails a run; a lost progress event is only logged.
func (a *Analyzer) publish(log logging.Logger, e events.Event) {
	e.Time = time.Now().UTC()
	if err := a.publisher.Publish(e); err != nil {
		log.Warn("publish event failed", logging.String("topic", e.Topic), logging.Error(err))
	}
}

// observer forwards interpreter progress to logs, metrics and events.
type observer struct {
	a    *Analyzer
	run  uuid.UUID
	mode string
	log  logging.Logger
	rays int
}

func (o *observer) NodeAnalyzed(ev scenery.NodeEvent) {
	n := ev.Node
	name := strings.Join(append(append([]string(nil), ev.Path...), n.Name()), "/")

	o.a.metrics.RecordNodeAnalysis(n.NodeType(), o.mode, ev.Elapsed)
	if n.NodeType() == nodes.TypeSource {
		o.rays += ev.Rays
		o.a.metrics.RecordRaysTraced(o.mode, ev.Rays)
	}
	if ev.Dropped > 0 {
		o.a.metrics.RecordRaysDropped("filter", ev.Dropped)
	}

	o.log.Debug("node analyzed",
		logging.NodeID(n.ID()),
		logging.Path(name),
		logging.NodeType(n.NodeType()),
		logging.String("direction", ev.Direction.String()),
		logging.Pass(ev.Pass),
		logging.Energy(ev.Energy.Joules()),
		logging.Rays(ev.Rays),
		logging.Latency(ev.Elapsed),
	)
	o.a.publish(o.log, events.Event{
		Topic:     events.TopicNodeResolved,
		Run:       o.run,
		Mode:      o.mode,
		Node:      name,
		NodeType:  n.NodeType(),
		Direction: ev.Direction.String(),
		Pass:      ev.Pass,
		Energy:    ev.Energy.Joules(),
		Rays:      ev.Rays,
	})
}

func (o *observer) PassDone(pass int, d optic.Direction) {
	o.a.metrics.RecordGhostPass()
	o.log.Debug("ghost pass done", logging.Pass(pass), logging.String("direction", d.String()))
	o.a.publish(o.log, events.Event{
		Topic:     events.TopicGhostPass,
		Run:       o.run,
		Mode:      o.mode,
		Direction: d.String(),
		Pass:      pass,
	})
}
