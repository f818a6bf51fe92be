// Package stream publishes committed outbox messages to a broker.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/metrics"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
)

// Outbox is the durable queue the relay drains.
type Outbox interface {
	PendingOutbox(ctx context.Context, limit int) ([]stream.Message, error)
	AckOutbox(ctx context.Context, ids []int64) error
	OutboxBacklog(ctx context.Context) (int, error)
}

// RelayConfig holds the relay settings.
type RelayConfig struct {
	BatchSize int
	Interval  time.Duration
}

// Relay moves messages from the outbox to a publisher in id order. A message is
// deleted only after the publisher accepted it, so delivery is at least once.
type Relay struct {
	outbox    Outbox
	publisher stream.Publisher
	cfg       RelayConfig
	clock     clock.Clock
	log       *logger.Logger

	wake chan struct{}
}

// NewRelay creates a relay. Run drives it; Drain can be called directly.
func NewRelay(outbox Outbox, publisher stream.Publisher, cfg RelayConfig, clk clock.Clock, log *logger.Logger) *Relay {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		cfg:       cfg,
		clock:     clk,
		log:       log,
		wake:      make(chan struct{}, 1),
	}
}

// Notify wakes the relay. It never blocks.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run drains the outbox on every notification and at least once per interval
// until ctx is cancelled. Publish failures are retried on the next round.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Infow("stream relay started", "batch_size", r.cfg.BatchSize, "interval", r.cfg.Interval)

	for {
		_, err := r.Drain(ctx)
		switch {
		case err == nil:
			metrics.ComponentHealthSet(common.ComponentStreamRelay, true)
		case ctx.Err() == nil:
			metrics.ErrorsInc(common.ComponentStreamRelay, metrics.SeverityTransient)
			metrics.ComponentHealthSet(common.ComponentStreamRelay, false)
			r.log.Warnw("relay round failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.log.Info("stream relay stopped")
			return nil
		case <-r.wake:
		case <-r.clock.After(r.cfg.Interval):
		}
	}
}

// Drain publishes pending messages until the outbox is empty or a publish fails.
// It returns the number of messages published.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	published := 0
	defer r.updateBacklog(ctx)

	for {
		msgs, err := r.outbox.PendingOutbox(ctx, r.cfg.BatchSize)
		if err != nil {
			return published, err
		}
		if len(msgs) == 0 {
			return published, nil
		}

		if err := r.publisher.Publish(ctx, msgs); err != nil {
			relayFailures.Inc()
			return published, fmt.Errorf("failed to publish %d messages starting at %d: %w", len(msgs), msgs[0].ID, err)
		}

		ids := make([]int64, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
			relayPublishedInc(m.Topic)
		}

		if err := r.outbox.AckOutbox(ctx, ids); err != nil {
			// published but still queued: the messages go out again next round
			return published, fmt.Errorf("failed to acknowledge published messages: %w", err)
		}

		published += len(msgs)
		r.log.Debugw("published outbox messages", "count", len(msgs), "last_id", ids[len(ids)-1])

		if len(msgs) < r.cfg.BatchSize {
			return published, nil
		}
	}
}

func (r *Relay) updateBacklog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := r.outbox.OutboxBacklog(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.log.Debugw("failed to read outbox backlog", "error", err)
		}
		return
	}
	relayBacklogLog(n)
}
