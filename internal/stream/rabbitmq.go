package stream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithDeferredConfirmWithContext(
		ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing,
	) (*amqp.DeferredConfirmation, error)
	Close() error
}

// RabbitMQPublisher publishes to a durable topic exchange with the message topic
// as routing key. The channel runs in confirm mode and every message must be acked.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	log      *logger.Logger
}

// NewRabbitMQPublisher dials the broker and declares the exchange.
func NewRabbitMQPublisher(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQPublisher, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	log.Infow("rabbitmq publisher created", "exchange", cfg.Exchange)

	p := newRabbitMQPublisher(ch, cfg.Exchange, log)
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisher(ch amqpChannel, exchange string, log *logger.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: ch, exchange: exchange, log: log}
}

// Publish sends every message, then waits for each confirmation.
func (p *RabbitMQPublisher) Publish(ctx context.Context, msgs []stream.Message) error {
	start := time.Now()
	defer func() {
		publishDuration.WithLabelValues(config.StreamDriverRabbitMQ).Observe(time.Since(start).Seconds())
	}()

	confirms := make([]*amqp.DeferredConfirmation, 0, len(msgs))
	for _, m := range msgs {
		dc, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, p.exchange, m.Topic, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    m.Key,
			Headers:      amqp.Table{headerBlockNumber: strconv.FormatUint(m.BlockNumber, 10)},
			Body:         m.Payload,
		})
		if err != nil {
			return fmt.Errorf("failed to publish message %d: %w", m.ID, err)
		}
		// nil when the channel is not in confirm mode
		if dc != nil {
			confirms = append(confirms, dc)
		}
	}

	for _, dc := range confirms {
		acked, err := dc.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("failed waiting for publisher confirm: %w", err)
		}
		if !acked {
			return fmt.Errorf("broker nacked delivery %d", dc.DeliveryTag)
		}
	}

	return nil
}

// Close closes the channel and the connection.
func (p *RabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.log.Warnw("failed to close channel", "error", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
