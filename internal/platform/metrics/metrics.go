package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments of the resolution service.
type Metrics struct {
	Resolutions        *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	OperationsReturned prometheus.Histogram
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
}

// New creates and registers the service metrics on the given registerer;
// nil uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "georef_resolutions_total",
			Help: "Coordinate operation resolutions by outcome (found, empty, error)",
		}, []string{"outcome"}),
		ResolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "georef_resolution_duration_seconds",
			Help:    "End-to-end latency of one resolution request",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		OperationsReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "georef_resolution_operations",
			Help:    "Number of operations returned per resolution",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "georef_resolution_cache_hits_total",
			Help: "Resolutions answered from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "georef_resolution_cache_misses_total",
			Help: "Resolutions that had to run the engine",
		}),
	}
}

// ObserveResolution records one completed resolution.
func (m *Metrics) ObserveResolution(outcome string, operations int, elapsed time.Duration) {
	m.Resolutions.WithLabelValues(outcome).Inc()
	m.ResolutionDuration.Observe(elapsed.Seconds())
	m.OperationsReturned.Observe(float64(operations))
}
