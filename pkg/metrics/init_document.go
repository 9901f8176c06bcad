package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDocumentMetrics() {
	r.DocumentsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticbench_documents_total",
			Help: "Total number of document loads and saves",
		},
		[]string{"op", "status"},
	)

	r.DocumentBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opticbench_document_bytes",
			Help:    "Encoded document size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"codec"},
	)
}
