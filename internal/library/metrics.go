package library

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the library's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	undoDepth  prometheus.Gauge
	redoDepth  prometheus.Gauge
	changes    prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booklibrary",
			Name:      "operations_total",
			Help:      "Library operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booklibrary",
			Name:      "operation_duration_seconds",
			Help:      "Latency of library operations including the store call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		undoDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "booklibrary",
			Name:      "history_undo_depth",
			Help:      "Records available to undo.",
		}),
		redoDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "booklibrary",
			Name:      "history_redo_depth",
			Help:      "Records available to redo.",
		}),
		changes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "booklibrary",
			Name:      "change_signals_total",
			Help:      "Change signals delivered to dependents.",
		}),
	}
}

// OnChanged counts a change signal. Metrics registers itself as a dependent.
func (m *Metrics) OnChanged() {
	if m == nil {
		return
	}
	m.changes.Inc()
}

// track starts timing op. Call the returned func with the operation's error
// once it finishes.
func (m *Metrics) track(op string) func(*error) {
	if m == nil {
		return func(*error) {}
	}
	timer := prometheus.NewTimer(m.duration.WithLabelValues(op))
	return func(errp *error) {
		timer.ObserveDuration()
		outcome := "ok"
		if errp != nil && *errp != nil {
			outcome = "error"
		}
		m.operations.WithLabelValues(op, outcome).Inc()
	}
}

func (m *Metrics) setDepth(undo, redo int) {
	if m == nil {
		return
	}
	m.undoDepth.Set(float64(undo))
	m.redoDepth.Set(float64(redo))
}
