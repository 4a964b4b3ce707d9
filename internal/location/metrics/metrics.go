package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the location hierarchy module.
type Metrics struct {
	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec
	LookupTimeMs *prometheus.HistogramVec
}

// New creates a new Metrics instance with all hierarchy metrics registered.
func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiserver_hierarchy_cache_hits_total",
			Help: "Hierarchy cache hits by lookup kind",
		}, []string{"lookup"}), // lookup: "chain", "descendants"

		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiserver_hierarchy_cache_misses_total",
			Help: "Hierarchy cache misses by lookup kind",
		}, []string{"lookup"}),

		LookupTimeMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "communiserver_hierarchy_lookup_duration_ms",
			Help:    "Latency of hierarchy lookups in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		}, []string{"lookup"}),
	}
}

// RecordHit records a cache hit with its latency.
func (m *Metrics) RecordHit(lookup string, start time.Time) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(lookup).Inc()
	m.observe(lookup, start)
}

// RecordMiss records a cache miss with its latency.
func (m *Metrics) RecordMiss(lookup string, start time.Time) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(lookup).Inc()
	m.observe(lookup, start)
}

func (m *Metrics) observe(lookup string, start time.Time) {
	m.LookupTimeMs.WithLabelValues(lookup).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
