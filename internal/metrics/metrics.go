// Package metrics exposes the job pipeline's Prometheus counters, grounded
// on pkg/metrics/metrics.go's package-level vars + init-time MustRegister
// pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_jobs_messages_handled_total",
			Help: "Total messages successfully handled, by processor.",
		},
		[]string{"processor"},
	)

	MessagesRetriedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_jobs_messages_retried_total",
			Help: "Total messages scheduled for retry, by processor.",
		},
		[]string{"processor"},
	)

	MessagesDeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_jobs_messages_dead_lettered_total",
			Help: "Total messages moved to the dead-letter list, by processor.",
		},
		[]string{"processor"},
	)

	QueueDrainDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_jobs_queue_drain_depth",
			Help: "Number of messages processed in the most recent drain pass, by processor.",
		},
		[]string{"processor"},
	)

	RetryWheelReleasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_jobs_retry_wheel_released_total",
			Help: "Total entries released from the retry wheel back onto the main queue.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesHandledTotal,
		MessagesRetriedTotal,
		MessagesDeadLetteredTotal,
		QueueDrainDepth,
		RetryWheelReleasedTotal,
	)
}

// Handler returns the standard promhttp handler for mounting on a router.
var Handler = promhttp.Handler
