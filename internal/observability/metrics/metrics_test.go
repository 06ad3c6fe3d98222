package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveTransition("cancel", OutcomeSuccess, 120*time.Millisecond)
	m.ObserveTransition("cancel", OutcomeSuccess, 80*time.Millisecond)
	m.ObserveTransition("book", OutcomeRejected, 10*time.Millisecond)
	m.ObserveSlotQuery(OutcomeSuccess)
	m.ObserveAggregateLoad("current", OutcomePartial)
	m.ObserveHTTPRequest("GET", "200")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("cancel", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("book", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotQueries.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregateLoads.WithLabelValues("current", OutcomePartial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.transitionTime))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveTransition("book", OutcomeError, time.Second)
	m.ObserveSlotQuery(OutcomeError)
	m.ObserveAggregateLoad("selected", OutcomeError)
	m.ObserveHTTPRequest("POST", "500")
}

func TestBookingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBookingMetrics(reg)

	assert.Panics(t, func() { NewBookingMetrics(reg) }, "duplicate registration must panic")
}
