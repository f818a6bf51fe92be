// Package redisconn opens redis clients shared by the stream publisher and the cache invalidator.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Open parses cfg.URL, applies the password override and checks the connection.
func Open(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}
