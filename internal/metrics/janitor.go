package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Janitor metrics cover the background session-cleanup loop.
var (
	JanitorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_runs_total",
			Help:      "Total number of session cleanup runs",
		},
		[]string{"status"}, // "completed" or "failed"
	)

	JanitorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "janitor_duration_seconds",
			Help:      "Session cleanup run duration distribution",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)
)

// JanitorCompleted records a successful cleanup run.
func JanitorCompleted(duration time.Duration) {
	JanitorRunsTotal.WithLabelValues("completed").Inc()
	JanitorDuration.Observe(duration.Seconds())
}

// JanitorFailed records a failed cleanup run.
func JanitorFailed() {
	JanitorRunsTotal.WithLabelValues("failed").Inc()
}
