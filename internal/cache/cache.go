// Package cache notifies downstream caches of entities changed by a commit or rollback.
package cache

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/redisconn"
	"github.com/goran-ethernal/ChainIngestor/pkg/cache"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	invalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainingestor_cache_invalidations_total",
		Help: "Total number of entity keys invalidated",
	})

	invalidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainingestor_cache_invalidation_failures_total",
		Help: "Total number of failed invalidation rounds",
	})
)

var _ cache.Invalidator = (*RedisInvalidator)(nil)

// RedisInvalidator deletes cached entity keys and publishes each key on a channel.
type RedisInvalidator struct {
	rdb       *redis.Client
	keyPrefix string
	channel   string
	log       *logger.Logger
}

// NewRedisInvalidator wraps an open client.
func NewRedisInvalidator(rdb *redis.Client, keyPrefix, channel string, log *logger.Logger) *RedisInvalidator {
	return &RedisInvalidator{rdb: rdb, keyPrefix: keyPrefix, channel: channel, log: log}
}

// Key returns the cache key of ref.
func (r *RedisInvalidator) Key(ref types.EntityRef) string {
	return r.keyPrefix + ref.String()
}

// Invalidate sends one DEL and one PUBLISH per ref in a single pipeline.
func (r *RedisInvalidator) Invalidate(ctx context.Context, refs []types.EntityRef) error {
	if len(refs) == 0 {
		return nil
	}

	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, ref := range refs {
			key := r.Key(ref)
			pipe.Del(ctx, key)
			pipe.Publish(ctx, r.channel, key)
		}
		return nil
	})
	if err != nil {
		invalidationFailures.Inc()
		return fmt.Errorf("failed to invalidate %d cache keys: %w", len(refs), err)
	}

	invalidations.Add(float64(len(refs)))
	r.log.Debugw("cache invalidated", "keys", len(refs))
	return nil
}

func (r *RedisInvalidator) Close() error {
	return r.rdb.Close()
}

// Noop ignores invalidations.
type Noop struct{}

func (Noop) Invalidate(context.Context, []types.EntityRef) error { return nil }

func (Noop) Close() error { return nil }

// New builds the invalidator selected by cfg.Driver.
func New(ctx context.Context, cfg *config.CacheConfig, log *logger.Logger) (cache.Invalidator, error) {
	switch cfg.Driver {
	case config.CacheDriverNone, "":
		return Noop{}, nil
	case config.CacheDriverRedis:
		rdb, err := redisconn.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.Infow("redis cache invalidator created", "key_prefix", cfg.KeyPrefix, "channel", cfg.Channel)
		return NewRedisInvalidator(rdb, cfg.KeyPrefix, cfg.Channel, log), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
