package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics of the analysis engine
type Registry struct {
	// Analysis metrics
	AnalysesTotal            *prometheus.CounterVec
	AnalysisDuration         *prometheus.HistogramVec
	NodeAnalysesTotal        *prometheus.CounterVec
	NodeAnalysisDuration     *prometheus.HistogramVec
	RaysTracedTotal          *prometheus.CounterVec
	RaysDroppedTotal         *prometheus.CounterVec
	GhostPassesTotal         prometheus.Counter
	HitPointsTotal           prometheus.Counter
	FluenceEstimationsTotal  *prometheus.CounterVec
	FluenceEstimationSeconds *prometheus.HistogramVec

	// Graph metrics
	GraphNodes prometheus.Gauge
	GraphEdges prometheus.Gauge

	// Document metrics
	DocumentsTotal *prometheus.CounterVec
	DocumentBytes  *prometheus.HistogramVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns a process-wide registry. Only binaries use it,
// library code receives its registry explicitly.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initAnalysisMetrics()
	r.initGraphMetrics()
	r.initDocumentMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
