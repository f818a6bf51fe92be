package router

import (
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_router_events_total",
			Help: "Total number of events dispatched to handlers by family",
		},
		[]string{"family"},
	)

	anomaliesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_router_anomalies_total",
			Help: "Total number of unrecognized or malformed logs",
		},
		[]string{"kind"},
	)

	handlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainingestor_router_handler_errors_total",
			Help: "Total number of handler failures by family",
		},
		[]string{"family"},
	)
)

func eventsRoutedInc(family events.Family) {
	eventsRouted.WithLabelValues(string(family)).Inc()
}

func anomaliesRoutedInc(kind string) {
	anomaliesRouted.WithLabelValues(kind).Inc()
}

func handlerErrorsInc(family events.Family) {
	handlerErrors.WithLabelValues(string(family)).Inc()
}
