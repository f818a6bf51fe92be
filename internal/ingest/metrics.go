package ingest

import (
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loopState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_ingest_state",
			Help: "Current ingestion loop phase (0=idle, 1=fetching, 2=decoding, 3=routing, 4=committing, 5=shutting_down)",
		},
	)

	chainHead = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_ingest_chain_head",
			Help: "Latest chain head observed at the configured finality",
		},
	)

	blocksBehind = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_ingest_blocks_behind",
			Help: "Number of blocks between the checkpoint and the chain head",
		},
	)

	batchesCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_ingest_batches_total",
			Help: "Total number of committed batches",
		},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainingestor_ingest_batch_duration_seconds",
			Help:    "Time from fetch start to commit of a batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	batchBlocks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainingestor_ingest_batch_blocks",
			Help:    "Number of blocks per committed batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	eventsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_ingest_events_total",
			Help: "Total number of committed events by family",
		},
		[]string{"family"},
	)

	duplicateEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_ingest_duplicate_events_total",
			Help: "Total number of replayed logs skipped by the idempotency guard",
		},
	)

	decodeAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_decode_anomalies_total",
			Help: "Total number of logs decoded as unrecognized or malformed",
		},
		[]string{"kind"},
	)

	transientErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_ingest_transient_errors_total",
			Help: "Total number of abandoned iterations by phase",
		},
		[]string{"phase"},
	)

	prefetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_ingest_prefetch_total",
			Help: "Prefetched ranges by outcome (used, discarded, failed)",
		},
		[]string{"outcome"},
	)
)

func loopStateLog(s State) {
	loopState.Set(float64(s))
}

func headLog(head, next uint64) {
	chainHead.Set(float64(head))
	if head+1 >= next {
		blocksBehind.Set(float64(head + 1 - next))
	}
}

func eventsCommittedAdd(family events.Family, n int) {
	eventsCommitted.WithLabelValues(string(family)).Add(float64(n))
}

func decodeAnomalyInc(kind string) {
	decodeAnomalies.WithLabelValues(kind).Inc()
}

func transientErrorInc(phase State) {
	transientErrors.WithLabelValues(phase.String()).Inc()
}

func prefetchInc(outcome string) {
	prefetches.WithLabelValues(outcome).Inc()
}
