package metrics

import (
	"time"
)

// RecordAnalysis records a complete analysis run
func (r *Registry) RecordAnalysis(mode, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.AnalysesTotal.WithLabelValues(mode, status).Inc()
	r.AnalysisDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordNodeAnalysis records one node analysis call
func (r *Registry) RecordNodeAnalysis(nodeType, mode string, duration time.Duration) {
	if r == nil {
		return
	}
	r.NodeAnalysesTotal.WithLabelValues(nodeType, mode).Inc()
	r.NodeAnalysisDuration.WithLabelValues(nodeType, mode).Observe(duration.Seconds())
}

// RecordRaysTraced adds rays emitted by sources
func (r *Registry) RecordRaysTraced(mode string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RaysTracedTotal.WithLabelValues(mode).Add(float64(n))
}

// RecordRaysDropped adds rays removed from a bundle (aperture, tir, energy, bounces)
func (r *Registry) RecordRaysDropped(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RaysDroppedTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordGhostPass counts one ghost focus bounce pass
func (r *Registry) RecordGhostPass() {
	if r == nil {
		return
	}
	r.GhostPassesTotal.Inc()
}

// RecordHitPoints adds recorded hit points
func (r *Registry) RecordHitPoints(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.HitPointsTotal.Add(float64(n))
}

// RecordFluenceEstimation records a fluence map computation
func (r *Registry) RecordFluenceEstimation(estimator string, duration time.Duration) {
	if r == nil {
		return
	}
	r.FluenceEstimationsTotal.WithLabelValues(estimator).Inc()
	r.FluenceEstimationSeconds.WithLabelValues(estimator).Observe(duration.Seconds())
}

// SetGraphSize updates the graph gauges
func (r *Registry) SetGraphSize(nodes, edges int) {
	if r == nil {
		return
	}
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
}

// RecordDocument records a document load or save
func (r *Registry) RecordDocument(op, codec, status string, size int) {
	if r == nil {
		return
	}
	r.DocumentsTotal.WithLabelValues(op, status).Inc()
	if size > 0 {
		r.DocumentBytes.WithLabelValues(codec).Observe(float64(size))
	}
}
