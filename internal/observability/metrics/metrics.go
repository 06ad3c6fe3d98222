package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the scheduling gateway.
type BookingMetrics struct {
	transitionsTotal *prometheus.CounterVec
	transitionTime   *prometheus.HistogramVec
	slotQueries      *prometheus.CounterVec
	aggregateLoads   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment transitions by operation and outcome",
		}, []string{"operation", "outcome"}),
		transitionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "transition_duration_seconds",
			Help:      "Latency of appointment transitions including the backend round trip",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		slotQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "slots",
			Name:      "queries_total",
			Help:      "Availability queries by outcome",
		}, []string{"outcome"}),
		aggregateLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "facility",
			Name:      "aggregate_loads_total",
			Help:      "Facility aggregate loads by view and outcome",
		}, []string{"view", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Gateway HTTP requests by method and status",
		}, []string{"method", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.transitionTime, m.slotQueries, m.aggregateLoads, m.httpRequests)
	return m
}

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomePartial  = "partial"
)

func (m *BookingMetrics) ObserveTransition(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(operation, outcome).Inc()
	m.transitionTime.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *BookingMetrics) ObserveSlotQuery(outcome string) {
	if m == nil {
		return
	}
	m.slotQueries.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveAggregateLoad(view, outcome string) {
	if m == nil {
		return
	}
	m.aggregateLoads.WithLabelValues(view, outcome).Inc()
}

func (m *BookingMetrics) ObserveHTTPRequest(method, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, status).Inc()
}
