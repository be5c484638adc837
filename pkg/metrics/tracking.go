package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TrackingMetrics records counters for the event pipeline.
type TrackingMetrics struct {
	recorded      *prometheus.CounterVec
	dispatched    *prometheus.CounterVec
	relayAttempts *prometheus.CounterVec
	relayDropped  prometheus.Counter
	relayDuration prometheus.Histogram
}

// NewTrackingMetrics registers the tracking metrics on the provided registerer.
func NewTrackingMetrics(reg prometheus.Registerer) *TrackingMetrics {
	if reg == nil {
		return &TrackingMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_events_recorded_total",
		Help: "Events appended to the local event log.",
	}, []string{"event"})
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_events_dispatched_total",
		Help: "Events published to the pixel and tag queue.",
	}, []string{"event"})
	relayAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "capi_relay_attempts_total",
		Help: "Relay delivery attempts by outcome.",
	}, []string{"outcome"})
	relayDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capi_relay_dropped_total",
		Help: "Relay events dropped after exhausted retries or queue overflow.",
	})
	relayDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "capi_relay_duration_seconds",
		Help:    "Duration of relay deliveries in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(recorded, dispatched, relayAttempts, relayDropped, relayDuration)
	return &TrackingMetrics{
		recorded:      recorded,
		dispatched:    dispatched,
		relayAttempts: relayAttempts,
		relayDropped:  relayDropped,
		relayDuration: relayDuration,
	}
}

// IncRecorded counts an event appended to the local log.
func (m *TrackingMetrics) IncRecorded(event string) {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncDispatched counts an event fanned out to pixel/queue.
func (m *TrackingMetrics) IncDispatched(event string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncRelayAttempt counts a relay attempt with the given outcome.
func (m *TrackingMetrics) IncRelayAttempt(outcome string) {
	if m == nil || m.relayAttempts == nil {
		return
	}
	m.relayAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRelayDropped counts a relay event lost after retries or overflow.
func (m *TrackingMetrics) IncRelayDropped() {
	if m == nil || m.relayDropped == nil {
		return
	}
	m.relayDropped.Inc()
}

// ObserveRelayDuration records how long one delivery took.
func (m *TrackingMetrics) ObserveRelayDuration(d time.Duration) {
	if m == nil || m.relayDuration == nil {
		return
	}
	m.relayDuration.Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
