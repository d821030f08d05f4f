package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_consumed_total",
			Help: "Total number of messages consumed from the broker",
		},
		[]string{"stage"},
	)

	messagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_processed_total",
			Help: "Total number of messages processed, by outcome",
		},
		[]string{"stage", "outcome"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_retries_total",
			Help: "Total number of messages republished for retry",
		},
		[]string{"stage"},
	)

	deadLetteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_dead_lettered_total",
			Help: "Total number of messages routed to the error queue",
		},
		[]string{"stage", "reason"},
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_processing_duration_seconds",
			Help:    "Duration of message processing",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	reconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_broker_reconnects_total",
			Help: "Total number of broker reconnect cycles",
		},
		[]string{"stage"},
	)

	notificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_notifications_sent_total",
			Help: "Total number of notifications dispatched, by transport and result",
		},
		[]string{"transport", "result"},
	)
)

func RecordMessageConsumed(stage string) {
	messagesConsumedTotal.WithLabelValues(stage).Inc()
}

func RecordMessageProcessed(stage, outcome string, duration time.Duration) {
	messagesProcessedTotal.WithLabelValues(stage, outcome).Inc()
	processingDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func RecordRetry(stage string) {
	retriesTotal.WithLabelValues(stage).Inc()
}

func RecordDeadLettered(stage, reason string) {
	deadLetteredTotal.WithLabelValues(stage, reason).Inc()
}

func RecordReconnect(stage string) {
	reconnectsTotal.WithLabelValues(stage).Inc()
}

func RecordNotification(transport, result string) {
	notificationsSentTotal.WithLabelValues(transport, result).Inc()
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
