package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the search module.
type Metrics struct {
	SearchTimeMs *prometheus.HistogramVec
	Searches     *prometheus.CounterVec
}

// New creates a new Metrics instance with all search metrics registered.
func New() *Metrics {
	return &Metrics{
		SearchTimeMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "communiserver_search_duration_ms",
			Help:    "Latency of search calls in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"surface"}), // surface: "global", "locations"

		Searches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiserver_searches_total",
			Help: "Search calls by surface and outcome",
		}, []string{"surface", "outcome"}),
	}
}

// Record records one search call with its latency and outcome.
func (m *Metrics) Record(surface string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Searches.WithLabelValues(surface, outcome).Inc()
	m.SearchTimeMs.WithLabelValues(surface).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
