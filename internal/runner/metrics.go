package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mldesk",
			Subsystem: "tasks",
			Name:      "total",
			Help:      "Total number of background tasks by operation and status",
		},
		[]string{"op", "status"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mldesk",
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Duration of background tasks in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"op"},
	)

	inboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mldesk",
			Subsystem: "inbox",
			Name:      "depth",
			Help:      "Outcomes currently waiting in the inbox",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksTotal, taskDuration, inboxDepth)
}
