package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "collabpad", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "collabpad", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	BroadcastsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "collabpad", Name: "broadcasts_sent_total", Help: "Realtime messages delivered, by event type."},
		[]string{"event"},
	)
	BroadcastsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "collabpad", Name: "broadcasts_dropped_total", Help: "Realtime messages dropped because a connection could not accept them."},
	)
	EditsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "collabpad", Name: "edits_applied_total", Help: "Content edits applied to in-memory document state."},
	)
	PersistWrites = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "collabpad", Name: "persist_writes_total", Help: "Debounced durable document writes attempted."},
	)
	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "collabpad", Name: "persist_failures_total", Help: "Durable document writes that failed."},
	)
	OpenSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "collabpad", Name: "open_sessions", Help: "Live realtime sessions currently joined to a document."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(BroadcastsSent)
	reg.MustRegister(BroadcastsDropped)
	reg.MustRegister(EditsApplied)
	reg.MustRegister(PersistWrites)
	reg.MustRegister(PersistFailures)
	reg.MustRegister(OpenSessions)
}
