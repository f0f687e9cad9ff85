package geommanager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	loads      prometheus.Counter
	alignments prometheus.Counter
	misses     prometheus.Counter
	entries    prometheus.Gauge
}

// newMetrics registers the manager collectors on reg. With a nil reg the
// collectors are created but not registered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		loads: factory.NewCounter(prometheus.CounterOpts{
			Name: "geometry_loads_total",
			Help: "Number of geometry trees loaded.",
		}),
		alignments: factory.NewCounter(prometheus.CounterOpts{
			Name: "alignments_applied_total",
			Help: "Number of alignments applied to the loaded geometry.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "geomid_lookup_misses_total",
			Help: "Number of points without a mapped geometry id.",
		}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "geomid_map_entries",
			Help: "Number of entries in the geometry id map.",
		}),
	}
}
