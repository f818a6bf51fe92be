// Package router dispatches decoded events to the handler port of their family.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
)

// Outcome reports where an event was dispatched.
type Outcome int

const (
	// Handled means the family handler accepted the event.
	Handled Outcome = iota
	// Anomaly means the event was Unrecognized or Malformed and went to the sink.
	Anomaly
)

func (o Outcome) String() string {
	switch o {
	case Handled:
		return "handled"
	case Anomaly:
		return "anomaly"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Router maps families to handler ports. It holds no state besides the bindings
// and performs no persistence of its own.
type Router struct {
	handlers handler.Set
	sink     handler.AnomalySink
	log      *logger.Logger
}

// New creates a router. Every family of set must be bound. A nil sink logs anomalies.
func New(set handler.Set, sink handler.AnomalySink, log *logger.Logger) (*Router, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	if sink == nil {
		sink = NewLogSink(log)
	}

	return &Router{handlers: set, sink: sink, log: log}, nil
}

// Route dispatches one event. Anomalies never produce an error.
func (r *Router) Route(ctx context.Context, scope handler.Scope, ev events.TypedEvent) (Outcome, error) {
	if ev.Payload == nil {
		return Anomaly, errors.New("event has no payload")
	}

	if ev.IsAnomaly() {
		anomaliesRoutedInc(ev.Name())
		r.sink.Anomaly(ctx, ev)
		return Anomaly, nil
	}

	h := r.handlers.For(ev.Family())
	if h == nil {
		return Handled, fmt.Errorf("no handler for family %s", ev.Family())
	}

	if err := h.Handle(ctx, scope, ev); err != nil {
		handlerErrorsInc(ev.Family())
		return Handled, fmt.Errorf("%s handler failed on %s at %s: %w", ev.Family(), ev.Name(), ev.Key(), err)
	}

	eventsRoutedInc(ev.Family())
	return Handled, nil
}

// LogSink logs anomalies at warn level.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Anomaly(_ context.Context, ev events.TypedEvent) {
	switch p := ev.Payload.(type) {
	case events.Malformed:
		s.log.Warnw("malformed log",
			"signature", p.Signature,
			"reason", p.Reason,
			"block", ev.Meta.BlockNumber,
			"tx", ev.Meta.TxHash.Hex(),
			"log_index", ev.Meta.LogIndex,
		)
	case events.Unrecognized:
		topic := "none"
		if p.Topic0 != nil {
			topic = p.Topic0.Hex()
		}
		s.log.Warnw("unrecognized log",
			"contract", p.Contract.Hex(),
			"topic0", topic,
			"block", ev.Meta.BlockNumber,
			"tx", ev.Meta.TxHash.Hex(),
			"log_index", ev.Meta.LogIndex,
		)
	}
}
