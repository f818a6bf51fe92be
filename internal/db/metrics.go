package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lock kinds for the lock wait histogram.
const (
	lockShared    = "shared"
	lockExclusive = "exclusive"
)

var (
	maintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_maintenance_runs_total",
			Help: "Maintenance passes by outcome",
		},
		[]string{"status"},
	)

	maintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainingestor_maintenance_duration_seconds",
			Help:    "Time a maintenance pass held the exclusive lock",
			Buckets: prometheus.DefBuckets,
		},
	)

	maintenanceLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_maintenance_last_run_timestamp",
			Help: "Unix time the last maintenance pass finished",
		},
	)

	maintenanceSpaceReclaimed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_maintenance_space_reclaimed_bytes",
			Help: "Bytes reclaimed by the last maintenance pass",
		},
	)

	maintenanceTaskErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_maintenance_task_errors_total",
			Help: "Failed registered maintenance tasks, such as entity version pruning",
		},
		[]string{"task"},
	)

	walCheckpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_wal_checkpoint_total",
			Help: "WAL checkpoints by mode",
		},
		[]string{"mode"},
	)

	vacuumRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_vacuum_total",
			Help: "VACUUM runs",
		},
	)

	dbSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_db_size_bytes",
			Help: "Database size in bytes including the WAL and shm files",
		},
	)

	lockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainingestor_db_lock_wait_seconds",
			Help:    "Time spent waiting for the batch (shared) or rollback and maintenance (exclusive) lock",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
		},
		[]string{"lock"},
	)
)

func maintenanceFinished(duration time.Duration, now time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	maintenanceRuns.WithLabelValues(status).Inc()
	maintenanceDuration.Observe(duration.Seconds())
	maintenanceLastRun.Set(float64(now.Unix()))
}

func lockWaitObserve(kind string, since time.Time) {
	lockWait.WithLabelValues(kind).Observe(time.Since(since).Seconds())
}
