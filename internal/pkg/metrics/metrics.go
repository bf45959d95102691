package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Maintenance counters, exposed on /metrics.
var (
	RowsAffected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maintenance",
		Name:      "rows_affected_total",
		Help:      "Rows soft-deleted or deleted by maintenance operations.",
	}, []string{"table", "mode"})

	CleanupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maintenance",
		Name:      "cleanup_runs_total",
		Help:      "Cleanup runs by table and final status.",
	}, []string{"table", "status"})

	CleanupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "maintenance",
		Name:      "cleanup_duration_seconds",
		Help:      "Wall-clock duration of cleanup runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"table"})

	ErasureRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maintenance",
		Name:      "erasure_runs_total",
		Help:      "Subject erasure runs by final status.",
	}, []string{"status"})
)

const (
	ModeSoftDelete = "soft_delete"
	ModeHardDelete = "hard_delete"
	ModeErasure    = "erasure"
)
