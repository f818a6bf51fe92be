package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_relay_published_total",
			Help: "Total number of outbox messages published by topic",
		},
		[]string{"topic"},
	)

	relayFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainingestor_relay_failures_total",
			Help: "Total number of failed publish rounds",
		},
	)

	relayBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainingestor_relay_backlog",
			Help: "Number of outbox messages waiting to be published",
		},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainingestor_relay_publish_duration_seconds",
			Help:    "Duration of publish calls by driver",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver"},
	)
)

func relayPublishedInc(topic string) {
	relayPublished.WithLabelValues(topic).Inc()
}

func relayBacklogLog(n int) {
	relayBacklog.Set(float64(n))
}
