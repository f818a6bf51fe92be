package stream

import (
	"context"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
)

// LogPublisher writes every message to the log. Useful for local runs.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, msgs []stream.Message) error {
	for _, m := range msgs {
		p.log.Infow("stream message",
			"id", m.ID,
			"topic", m.Topic,
			"key", m.Key,
			"block", m.BlockNumber,
			"payload", string(m.Payload),
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Discard accepts and drops every message.
type Discard struct{}

func (Discard) Publish(context.Context, []stream.Message) error { return nil }

func (Discard) Close() error { return nil }
