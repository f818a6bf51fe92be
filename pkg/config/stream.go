package config

import (
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/common"
)

// Stream drivers.
const (
	StreamDriverNone     = "none"
	StreamDriverLog      = "log"
	StreamDriverKafka    = "kafka"
	StreamDriverRabbitMQ = "rabbitmq"
	StreamDriverRedis    = "redis"
)

// Cache drivers.
const (
	CacheDriverNone  = "none"
	CacheDriverRedis = "redis"
)

// StreamConfig configures the outbox relay and its broker.
type StreamConfig struct {
	// Driver selects the publisher: none, log, kafka, rabbitmq or redis
	Driver string `yaml:"driver" json:"driver" toml:"driver"`

	// TopicPrefix is prepended to the family name to form the topic
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix" toml:"topic_prefix"`

	// RelayInterval is how often the outbox is drained without a commit notification
	RelayInterval common.Duration `yaml:"relay_interval" json:"relay_interval" toml:"relay_interval"`

	// RelayBatchSize is the maximum number of messages published per round
	RelayBatchSize int `yaml:"relay_batch_size" json:"relay_batch_size" toml:"relay_batch_size"`

	Kafka    *KafkaConfig    `yaml:"kafka,omitempty" json:"kafka,omitempty" toml:"kafka,omitempty"`
	RabbitMQ *RabbitMQConfig `yaml:"rabbitmq,omitempty" json:"rabbitmq,omitempty" toml:"rabbitmq,omitempty"`
	Redis    *RedisConfig    `yaml:"redis,omitempty" json:"redis,omitempty" toml:"redis,omitempty"`
}

// KafkaConfig configures the kafka publisher.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" json:"brokers" toml:"brokers"`
	ClientID string   `yaml:"client_id" json:"client_id" toml:"client_id"`
}

// RabbitMQConfig configures the rabbitmq publisher.
type RabbitMQConfig struct {
	URL string `yaml:"url" json:"url" toml:"url"`

	// Exchange is a topic exchange; the message topic is used as routing key
	Exchange string `yaml:"exchange" json:"exchange" toml:"exchange"`
}

// RedisConfig configures a redis connection.
type RedisConfig struct {
	URL      string `yaml:"url" json:"url" toml:"url"`
	Password string `yaml:"password" json:"password" toml:"password"`

	// MaxLen caps each stream with an approximate trim (streams only, 0 = unbounded)
	MaxLen int64 `yaml:"max_len" json:"max_len" toml:"max_len"`
}

// ApplyDefaults sets default values for optional stream configuration fields.
func (s *StreamConfig) ApplyDefaults() {
	if s.Driver == "" {
		s.Driver = StreamDriverNone
	}
	if s.TopicPrefix == "" {
		s.TopicPrefix = "chainingestor"
	}
	if s.RelayInterval.Duration == 0 {
		s.RelayInterval = common.NewDuration(5 * time.Second) //nolint:mnd
	}
	if s.RelayBatchSize == 0 {
		s.RelayBatchSize = 500
	}
	if s.Kafka != nil && s.Kafka.ClientID == "" {
		s.Kafka.ClientID = "chainingestor"
	}
	if s.RabbitMQ != nil && s.RabbitMQ.Exchange == "" {
		s.RabbitMQ.Exchange = "chainingestor"
	}
}

// Validate checks if the stream configuration is valid.
func (s *StreamConfig) Validate() error {
	switch s.Driver {
	case StreamDriverNone, StreamDriverLog:
	case StreamDriverKafka:
		if s.Kafka == nil || len(s.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for the kafka driver")
		}
	case StreamDriverRabbitMQ:
		if s.RabbitMQ == nil || s.RabbitMQ.URL == "" {
			return fmt.Errorf("rabbitmq.url is required for the rabbitmq driver")
		}
	case StreamDriverRedis:
		if s.Redis == nil || s.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the redis driver")
		}
	default:
		return fmt.Errorf("driver must be one of: none, log, kafka, rabbitmq, redis")
	}

	if s.RelayBatchSize < 1 {
		return fmt.Errorf("relay_batch_size must be positive")
	}

	return nil
}

// CacheConfig configures invalidate-on-write notifications.
type CacheConfig struct {
	// Driver selects the invalidator: none or redis
	Driver string `yaml:"driver" json:"driver" toml:"driver"`

	// KeyPrefix is prepended to "kind:key" to form the cache key
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" toml:"key_prefix"`

	// Channel receives one message per invalidated key
	Channel string `yaml:"channel" json:"channel" toml:"channel"`

	Redis *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty" toml:"redis,omitempty"`
}

// ApplyDefaults sets default values for optional cache configuration fields.
func (c *CacheConfig) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = CacheDriverNone
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "chainingestor:"
	}
	if c.Channel == "" {
		c.Channel = "chainingestor:invalidate"
	}
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	switch c.Driver {
	case CacheDriverNone:
	case CacheDriverRedis:
		if c.Redis == nil || c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the redis driver")
		}
	default:
		return fmt.Errorf("driver must be one of: none, redis")
	}
	return nil
}
