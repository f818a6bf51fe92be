package stream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
	"github.com/segmentio/kafka-go"
)

const headerBlockNumber = "block_number"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each message to the kafka topic named by Message.Topic.
// Messages are keyed so that one entity's updates stay on one partition.
type KafkaPublisher struct {
	writer messageWriter
	log    *logger.Logger
}

// NewKafkaPublisher creates a publisher that waits for all in-sync replicas.
func NewKafkaPublisher(cfg *config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: cfg.ClientID},
	}

	log.Infow("kafka publisher created", "brokers", cfg.Brokers, "client_id", cfg.ClientID)

	return newKafkaPublisher(w, log), nil
}

func newKafkaPublisher(w messageWriter, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log}
}

// Publish writes msgs in one call. kafka-go fails the whole call if any message fails.
func (p *KafkaPublisher) Publish(ctx context.Context, msgs []stream.Message) error {
	start := time.Now()
	defer func() { publishDuration.WithLabelValues(config.StreamDriverKafka).Observe(time.Since(start).Seconds()) }()

	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafka.Message{
			Topic: m.Topic,
			Key:   []byte(m.Key),
			Value: m.Payload,
			Headers: []kafka.Header{
				{Key: headerBlockNumber, Value: []byte(strconv.FormatUint(m.BlockNumber, 10))},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
