// Package handler defines the ports business handlers implement to consume typed events.
package handler

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/pkg/events"
)

// Scope gives a handler access to entity state inside the batch being committed.
// Writes become visible only if the whole batch commits, and every Save is
// versioned at the block of the event being handled so it can be reverted on reorg.
type Scope interface {
	// Load reads the state of an entity into out. It reports false if the entity does not exist.
	Load(ctx context.Context, kind, key string, out any) (bool, error)

	// Save stores the state of an entity, replacing any previous state.
	Save(ctx context.Context, kind, key string, state any) error
}

// Handler consumes the events of one family. Handle is called once per log in
// ascending (block, log index) order. Replays are filtered before reaching the
// handler, but handlers should still be idempotent keyed by tx hash and log index.
type Handler interface {
	Handle(ctx context.Context, scope Scope, ev events.TypedEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, scope Scope, ev events.TypedEvent) error

func (f HandlerFunc) Handle(ctx context.Context, scope Scope, ev events.TypedEvent) error {
	return f(ctx, scope, ev)
}

// Nop is a Handler that ignores every event.
var Nop Handler = HandlerFunc(func(context.Context, Scope, events.TypedEvent) error { return nil })

// Set holds one handler port per event family.
type Set struct {
	Position   Handler
	Lifecycle  Handler
	Settlement Handler
	Market     Handler
	Token      Handler
	Fee        Handler
}

// For returns the handler bound to family f, or nil for anomalies and unknown families.
func (s Set) For(f events.Family) Handler {
	switch f {
	case events.FamilyPosition:
		return s.Position
	case events.FamilyLifecycle:
		return s.Lifecycle
	case events.FamilySettlement:
		return s.Settlement
	case events.FamilyMarket:
		return s.Market
	case events.FamilyToken:
		return s.Token
	case events.FamilyFee:
		return s.Fee
	default:
		return nil
	}
}

// Validate checks that every port is bound.
func (s Set) Validate() error {
	for _, f := range events.Families {
		if s.For(f) == nil {
			return fmt.Errorf("no handler bound for family %s", f)
		}
	}
	return nil
}

// AnomalySink receives Unrecognized and Malformed events. It must not fail the batch.
type AnomalySink interface {
	Anomaly(ctx context.Context, ev events.TypedEvent)
}
