package checkpoint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkpointBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_checkpoint_block",
			Help: "Last block whose effects are durably committed",
		},
	)

	checkpointCommits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_checkpoint_commits_total",
			Help: "Total number of batches committed with a checkpoint advance",
		},
	)

	checkpointRewinds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_checkpoint_rewinds_total",
			Help: "Total number of checkpoint moves caused by rollbacks",
		},
	)
)

func checkpointBlockLog(block uint64) {
	checkpointBlock.Set(float64(block))
}
