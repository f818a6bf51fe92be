package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends messages to redis streams, one stream per topic.
type RedisPublisher struct {
	rdb    *redis.Client
	maxLen int64
	log    *logger.Logger
}

// NewRedisPublisher wraps an open client. maxLen > 0 trims each stream approximately.
func NewRedisPublisher(rdb *redis.Client, maxLen int64, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, maxLen: maxLen, log: log}
}

// Publish sends all XADDs in one pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, msgs []stream.Message) error {
	start := time.Now()
	defer func() { publishDuration.WithLabelValues(config.StreamDriverRedis).Observe(time.Since(start).Seconds()) }()

	_, err := p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range msgs {
			args := &redis.XAddArgs{
				Stream: m.Topic,
				Values: []any{
					"key", m.Key,
					headerBlockNumber, m.BlockNumber,
					"payload", m.Payload,
				},
			}
			if p.maxLen > 0 {
				args.MaxLen = p.maxLen
				args.Approx = true
			}
			pipe.XAdd(ctx, args)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis XADD failed: %w", err)
	}
	return nil
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
