package generic

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for async store operations.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
)

// Metrics instruments store operations. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	persistErrors *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certdash",
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Async store operations by store, operation and outcome.",
		}, []string{"store", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "certdash",
			Subsystem: "store",
			Name:      "request_seconds",
			Help:      "Latency of the remote call behind an async store operation.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 1.5, 2, 3, 5, 10},
		}, []string{"store", "op"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certdash",
			Subsystem: "ui",
			Name:      "notifications_total",
			Help:      "Notification lifecycle events by type.",
		}, []string{"type", "event"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certdash",
			Subsystem: "store",
			Name:      "persist_errors_total",
			Help:      "Snapshot writes that failed.",
		}, []string{"key"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.notifications, m.persistErrors)
	}
	return m
}

// ObserveRequest records one settled async operation.
func (m *Metrics) ObserveRequest(store, op, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(store, op, outcome).Inc()
	m.duration.WithLabelValues(store, op).Observe(took.Seconds())
}

// ObserveNotification records a notification event (created, expired, removed).
func (m *Metrics) ObserveNotification(kind, event string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, event).Inc()
}

// ObservePersistError records a failed snapshot write.
func (m *Metrics) ObservePersistError(key string) {
	if m == nil {
		return
	}
	m.persistErrors.WithLabelValues(key).Inc()
}
