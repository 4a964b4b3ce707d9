package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the analytics module.
type Metrics struct {
	ComputeTimeMs *prometheus.HistogramVec
	Computations  *prometheus.CounterVec
}

// New creates a new Metrics instance with all analytics metrics registered.
func New() *Metrics {
	return &Metrics{
		ComputeTimeMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "communiserver_analytics_compute_duration_ms",
			Help:    "Latency of analytics computations in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"view"}), // view: "core_metrics", "time_series", ...

		Computations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communiserver_analytics_computations_total",
			Help: "Analytics computations by view and outcome",
		}, []string{"view", "outcome"}),
	}
}

// Record records one computation with its latency and outcome.
func (m *Metrics) Record(view string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Computations.WithLabelValues(view, outcome).Inc()
	m.ComputeTimeMs.WithLabelValues(view).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
