package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Duration prometheus.Histogram
	Rejected prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "golem_attempts_total",
			Help: "Finished attempts by outcome",
		}, []string{"outcome"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "golem_attempt_duration_seconds",
			Help:    "Attempt duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "golem_attempts_rejected_total",
			Help: "Attempts rejected because another was in flight",
		}),
	}
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(r.Outcome.String()).Inc()
	m.Duration.Observe(r.Duration.Seconds())
}

func (m *Metrics) reject() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}
