package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.AnalysesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticbench_analyses_total",
			Help: "Total number of analyses run on a scenery",
		},
		[]string{"mode", "status"},
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opticbench_analysis_duration_seconds",
			Help:    "Duration of a complete analysis in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"mode"},
	)

	r.NodeAnalysesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticbench_node_analyses_total",
			Help: "Total number of node analysis calls",
		},
		[]string{"node_type", "mode"},
	)

	r.NodeAnalysisDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opticbench_node_analysis_duration_seconds",
			Help:    "Duration of a single node analysis call in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
		[]string{"node_type", "mode"},
	)

	r.RaysTracedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticbench_rays_traced_total",
			Help: "Total number of rays emitted by sources",
		},
		[]string{"mode"},
	)

	r.RaysDroppedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticbench_rays_dropped_total",
			Help: "Rays removed from bundles, by reason",
		},
		[]string{"reason"},
	)

	r.GhostPassesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "opticbench_ghost_passes_total",
			Help: "Total number of ghost focus bounce passes",
		},
	)

	r.HitPointsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "opticbench_hit_points_total",
			Help: "Total number of hit points recorded on monitored surfaces",
		},
	)

	r.FluenceEstimationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticbench_fluence_estimations_total",
			Help: "Total number of fluence map estimations",
		},
		[]string{"estimator"},
	)

	r.FluenceEstimationSeconds = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opticbench_fluence_estimation_duration_seconds",
			Help:    "Fluence map estimation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		},
		[]string{"estimator"},
	)
}
