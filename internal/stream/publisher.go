package stream

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/redisconn"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
)

// NewPublisher builds the publisher selected by cfg.Driver.
func NewPublisher(ctx context.Context, cfg *config.StreamConfig, log *logger.Logger) (stream.Publisher, error) {
	switch cfg.Driver {
	case config.StreamDriverNone, "":
		return Discard{}, nil
	case config.StreamDriverLog:
		return NewLogPublisher(log), nil
	case config.StreamDriverKafka:
		return NewKafkaPublisher(cfg.Kafka, log)
	case config.StreamDriverRabbitMQ:
		return NewRabbitMQPublisher(cfg.RabbitMQ, log)
	case config.StreamDriverRedis:
		rdb, err := redisconn.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisPublisher(rdb, cfg.Redis.MaxLen, log), nil
	default:
		return nil, fmt.Errorf("unknown stream driver %q", cfg.Driver)
	}
}
