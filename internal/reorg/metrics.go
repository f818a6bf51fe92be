package reorg

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reorgsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_reorgs_detected_total",
			Help: "Total number of blockchain reorganizations rolled back",
		},
	)

	reorgDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainingestor_reorg_depth_blocks",
			Help:    "Depth of blockchain reorganizations in blocks",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	reorgLastDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_reorg_last_detected_timestamp",
			Help: "Unix timestamp of last reorg detection",
		},
	)

	reorgsUnresolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_reorgs_unresolved_total",
			Help: "Total number of reorgs deeper than the configured depth",
		},
	)

	inconsistentViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_reorg_inconsistent_views_total",
			Help: "Total number of parent mismatches the node did not confirm",
		},
	)

	reorgState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_reorg_state",
			Help: "Reorg handler state (0 = synced, 1 = diverged)",
		},
	)
)

func reorgDetectedLog(depth uint64, at time.Time) {
	reorgsDetected.Inc()
	reorgDepth.Observe(float64(depth))
	reorgLastDetected.Set(float64(at.Unix()))
}

func reorgStateLog(s State) {
	reorgState.Set(float64(s))
}
