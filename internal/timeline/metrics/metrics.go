package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the timeline engine.
type Metrics struct {
	// Lifecycle transition outcomes by operation
	TransitionOutcome *prometheus.CounterVec

	// Lifecycle operation latency by operation
	TransitionLatency *prometheus.HistogramVec

	// Cache effectiveness for current-iteration lookups
	CacheLookups *prometheus.CounterVec
}

// New creates a Metrics instance with all timeline metrics registered on
// the default registry.
func New() *Metrics {
	return &Metrics{
		TransitionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tempus_timeline_transitions_total",
			Help: "Total lifecycle transition outcomes by operation and result",
		}, []string{"op", "outcome"}), // outcome: "ok", "rejected", "not_found", "error"

		TransitionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tempus_timeline_transition_duration_seconds",
			Help:    "Duration of lifecycle transitions by operation",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tempus_timeline_cache_lookups_total",
			Help: "Current-iteration cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
	}
}

// IncrementTransition records one lifecycle transition outcome.
func (m *Metrics) IncrementTransition(op, outcome string) {
	if m != nil {
		m.TransitionOutcome.WithLabelValues(op, outcome).Inc()
	}
}

// ObserveTransition records the duration of a lifecycle transition.
func (m *Metrics) ObserveTransition(op string, d time.Duration) {
	if m != nil {
		m.TransitionLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}

// IncrementCacheLookup records one cache lookup result.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}
