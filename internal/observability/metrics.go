package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded for lifecycle transitions.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	// LifecycleTransitions counts post and application state transitions.
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petbuddies_lifecycle_transitions_total",
		Help: "Post and application lifecycle transitions by outcome.",
	}, []string{"transition", "outcome"})

	// PhotoProcessingSeconds measures decode, resize, encode and upload of a photo.
	PhotoProcessingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "petbuddies_photo_processing_seconds",
		Help:    "Photo pipeline latency by kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// NotificationsPublished counts realtime events by type and result.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petbuddies_notifications_published_total",
		Help: "Realtime notification events by type and result.",
	}, []string{"event_type", "result"})

	// WebSocketBackpressureDrops counts messages dropped because a client could not keep up.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petbuddies_websocket_backpressure_drops_total",
		Help: "WebSocket messages dropped due to backpressure.",
	}, []string{"hub", "reason"})
)

// RecordTransition increments LifecycleTransitions with an outcome derived from err.
// rejected reports whether err is a domain rejection rather than a failure.
func RecordTransition(transition string, err error, rejected func(error) bool) {
	outcome := OutcomeOK
	switch {
	case err == nil:
	case rejected != nil && rejected(err):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeError
	}
	LifecycleTransitions.WithLabelValues(transition, outcome).Inc()
}
