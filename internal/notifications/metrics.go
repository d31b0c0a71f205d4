package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobgarden"

var (
	notificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "queue_depth",
			Help:      "Number of notifications waiting in the queue",
		},
	)

	notificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "enqueued_total",
			Help:      "Total notifications accepted into the queue",
		},
		[]string{"type"},
	)

	notificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "dropped_total",
			Help:      "Total notifications dropped because the queue was full",
		},
		[]string{"type"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total notifications processed by outcome",
		},
		[]string{"channel_type", "status"},
	)

	notificationSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time to send notification",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel_type"},
	)
)

func recordEnqueued(t MessageType) {
	notificationsEnqueued.WithLabelValues(string(t)).Inc()
}

func recordDropped(t MessageType) {
	notificationsDropped.WithLabelValues(string(t)).Inc()
}

func recordQueueDepth(n int) {
	notificationQueueDepth.Set(float64(n))
}

func recordNotificationSent(channel Channel, status string) {
	notificationsSent.WithLabelValues(string(channel), status).Inc()
}

func recordNotificationDuration(channel Channel, duration time.Duration) {
	notificationSendDuration.WithLabelValues(string(channel)).Observe(duration.Seconds())
}
