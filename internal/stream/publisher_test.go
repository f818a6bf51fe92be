package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

var testMessages = []stream.Message{
	{ID: 1, Topic: "test.token", Key: "k1", BlockNumber: 10, Payload: []byte(`{"a":1}`)},
	{ID: 2, Topic: "test.market", Key: "k2", BlockNumber: 11, Payload: []byte(`{"a":2}`)},
}

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, logger.NewNopLogger())

	require.NoError(t, p.Publish(context.Background(), testMessages))
	require.Len(t, w.written, 2)

	require.Equal(t, "test.token", w.written[0].Topic)
	require.Equal(t, []byte("k1"), w.written[0].Key)
	require.Equal(t, []byte(`{"a":1}`), w.written[0].Value)
	require.Equal(t, []kafka.Header{{Key: "block_number", Value: []byte("10")}}, w.written[0].Headers)
	require.Equal(t, "test.market", w.written[1].Topic)

	w.err = errors.New("leader not available")
	require.ErrorContains(t, p.Publish(context.Background(), testMessages), "leader not available")

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(&config.KafkaConfig{}, logger.NewNopLogger())
	require.Error(t, err)
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	published []published
	failAt    int
	closed    bool
}

func (c *fakeChannel) PublishWithDeferredConfirmWithContext(
	_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing,
) (*amqp.DeferredConfirmation, error) {
	if c.failAt > 0 && len(c.published)+1 == c.failAt {
		return nil, amqp.ErrClosed
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil, nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestRabbitMQPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p := newRabbitMQPublisher(ch, "events", logger.NewNopLogger())

	require.NoError(t, p.Publish(context.Background(), testMessages))
	require.Len(t, ch.published, 2)

	first := ch.published[0]
	require.Equal(t, "events", first.exchange)
	require.Equal(t, "test.token", first.key)
	require.Equal(t, "k1", first.msg.MessageId)
	require.Equal(t, amqp.Persistent, first.msg.DeliveryMode)
	require.Equal(t, "10", first.msg.Headers["block_number"])
	require.Equal(t, []byte(`{"a":1}`), first.msg.Body)

	require.NoError(t, p.Close())
	require.True(t, ch.closed)
}

func TestRabbitMQPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{failAt: 2}
	p := newRabbitMQPublisher(ch, "events", logger.NewNopLogger())

	err := p.Publish(context.Background(), testMessages)
	require.ErrorIs(t, err, amqp.ErrClosed)
	require.ErrorContains(t, err, "message 2")
}

// recorder captures pipelined commands without touching the network.
type recorder struct {
	cmds []redis.Cmder
}

func (r *recorder) DialHook(next redis.DialHook) redis.DialHook { return next }

func (r *recorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (r *recorder) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(_ context.Context, cmds []redis.Cmder) error {
		r.cmds = append(r.cmds, cmds...)
		return nil
	}
}

func TestRedisPublisher(t *testing.T) {
	tests := []struct {
		name   string
		maxLen int64
	}{
		{name: "unbounded", maxLen: 0},
		{name: "trimmed", maxLen: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
			rec := &recorder{}
			rdb.AddHook(rec)

			p := NewRedisPublisher(rdb, tt.maxLen, logger.NewNopLogger())
			t.Cleanup(func() { _ = p.Close() })

			require.NoError(t, p.Publish(context.Background(), testMessages))
			require.Len(t, rec.cmds, 2)

			args := rec.cmds[0].Args()
			require.Equal(t, "xadd", args[0])
			require.Equal(t, "test.token", args[1])
			require.Contains(t, args, "k1")
			require.Contains(t, args, "payload")
			require.Contains(t, args, uint64(10))
			if tt.maxLen > 0 {
				require.Contains(t, args, "~")
				require.Contains(t, args, tt.maxLen)
			} else {
				require.NotContains(t, args, "~")
			}

			require.Equal(t, "test.market", rec.cmds[1].Args()[1])
		})
	}
}

func TestNewPublisher(t *testing.T) {
	log := logger.NewNopLogger()

	p, err := NewPublisher(context.Background(), &config.StreamConfig{Driver: config.StreamDriverNone}, log)
	require.NoError(t, err)
	require.IsType(t, Discard{}, p)

	p, err = NewPublisher(context.Background(), &config.StreamConfig{Driver: config.StreamDriverLog}, log)
	require.NoError(t, err)
	require.IsType(t, &LogPublisher{}, p)
	require.NoError(t, p.Publish(context.Background(), testMessages))

	p, err = NewPublisher(context.Background(), &config.StreamConfig{
		Driver: config.StreamDriverKafka,
		Kafka:  &config.KafkaConfig{Brokers: []string{"localhost:9092"}, ClientID: "test"},
	}, log)
	require.NoError(t, err)
	require.IsType(t, &KafkaPublisher{}, p)
	require.NoError(t, p.Close())

	_, err = NewPublisher(context.Background(), &config.StreamConfig{Driver: "nats"}, log)
	require.ErrorContains(t, err, "unknown stream driver")

	_, err = NewPublisher(context.Background(), &config.StreamConfig{Driver: config.StreamDriverRedis}, log)
	require.ErrorContains(t, err, "redis url is required")
}
