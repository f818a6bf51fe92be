package config

import (
	"context"
	"fmt"

	pkgconfig "github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/sethvargo/go-envconfig"
)

// envOverrides lists the settings that can be set from the environment, mostly
// endpoints and secrets. Empty values leave the file setting untouched.
type envOverrides struct {
	RPCURL         string   `env:"RPC_URL"`
	Finality       string   `env:"FINALITY"`
	StartBlock     uint64   `env:"START_BLOCK"`
	BatchSize      uint64   `env:"BATCH_SIZE"`
	DBPath         string   `env:"DB_PATH"`
	StreamDriver   string   `env:"STREAM_DRIVER"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS"`
	RabbitMQURL    string   `env:"RABBITMQ_URL"`
	RedisURL       string   `env:"REDIS_URL"`
	RedisPassword  string   `env:"REDIS_PASSWORD"`
	CacheDriver    string   `env:"CACHE_DRIVER"`
	SentryDSN      string   `env:"SENTRY_DSN"`
	LogLevel       string   `env:"LOG_LEVEL"`
	MetricsAddress string   `env:"METRICS_ADDRESS"`
}

// ApplyEnv overlays INGESTOR_* variables from l onto cfg.
func ApplyEnv(ctx context.Context, cfg *pkgconfig.Config, l envconfig.Lookuper) error {
	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &env, envconfig.PrefixLookuper(EnvPrefix, l)); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	setString(&cfg.Chain.RPCURL, env.RPCURL)
	setString(&cfg.Chain.Finality, env.Finality)
	setString(&cfg.DB.Path, env.DBPath)
	setString(&cfg.Stream.Driver, env.StreamDriver)
	setString(&cfg.Cache.Driver, env.CacheDriver)

	if env.StartBlock != 0 {
		cfg.Ingestion.StartBlock = env.StartBlock
	}
	if env.BatchSize != 0 {
		cfg.Ingestion.BatchSize = env.BatchSize
	}

	if len(env.KafkaBrokers) > 0 {
		if cfg.Stream.Kafka == nil {
			cfg.Stream.Kafka = &pkgconfig.KafkaConfig{}
		}
		cfg.Stream.Kafka.Brokers = env.KafkaBrokers
	}

	if env.RabbitMQURL != "" {
		if cfg.Stream.RabbitMQ == nil {
			cfg.Stream.RabbitMQ = &pkgconfig.RabbitMQConfig{}
		}
		cfg.Stream.RabbitMQ.URL = env.RabbitMQURL
	}

	// one redis serves both the stream and the cache
	if env.RedisURL != "" || env.RedisPassword != "" {
		cfg.Stream.Redis = overlayRedis(cfg.Stream.Redis, env.RedisURL, env.RedisPassword)
		cfg.Cache.Redis = overlayRedis(cfg.Cache.Redis, env.RedisURL, env.RedisPassword)
	}

	if env.SentryDSN != "" {
		if cfg.Alerting == nil {
			cfg.Alerting = &pkgconfig.AlertingConfig{}
		}
		cfg.Alerting.SentryDSN = env.SentryDSN
	}

	if env.LogLevel != "" {
		if cfg.Logging == nil {
			cfg.Logging = &pkgconfig.LoggingConfig{}
		}
		cfg.Logging.DefaultLevel = env.LogLevel
	}

	if env.MetricsAddress != "" {
		if cfg.Metrics == nil {
			cfg.Metrics = &pkgconfig.MetricsConfig{Enabled: true}
		}
		cfg.Metrics.ListenAddress = env.MetricsAddress
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayRedis(r *pkgconfig.RedisConfig, url, password string) *pkgconfig.RedisConfig {
	if r == nil {
		r = &pkgconfig.RedisConfig{}
	}
	setString(&r.URL, url)
	setString(&r.Password, password)
	return r
}
