package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "opticbench_graph_nodes",
			Help: "Number of nodes in the top level scenery of the last analysis",
		},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "opticbench_graph_edges",
			Help: "Number of edges in the top level scenery of the last analysis",
		},
	)
}
