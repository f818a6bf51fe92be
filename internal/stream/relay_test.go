package stream_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/store"
	"github.com/goran-ethernal/ChainIngestor/internal/store/storetest"
	"github.com/goran-ethernal/ChainIngestor/internal/stream"
	"github.com/goran-ethernal/ChainIngestor/internal/stream/mocks"
	pkgstream "github.com/goran-ethernal/ChainIngestor/pkg/stream"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func enqueue(t *testing.T, s *store.Store, n int) {
	t.Helper()
	ctx := context.Background()

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	for i := range n {
		require.NoError(t, batch.Enqueue(ctx, "test.token", fmt.Sprintf("key-%d", i), uint64(i+1), []byte(`{}`)))
	}
	require.NoError(t, batch.Commit())
}

func backlog(t *testing.T, s *store.Store) int {
	t.Helper()
	n, err := s.OutboxBacklog(context.Background())
	require.NoError(t, err)
	return n
}

func TestRelay_DrainPublishesInOrder(t *testing.T) {
	s, _ := storetest.New(t, nil)
	enqueue(t, s, 7)

	var got []pkgstream.Message
	pub := mocks.NewPublisher(t)
	pub.EXPECT().Publish(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, msgs []pkgstream.Message) error {
			got = append(got, msgs...)
			return nil
		}).Times(3)

	relay := stream.NewRelay(s, pub, stream.RelayConfig{BatchSize: 3, Interval: time.Second}, nil, logger.NewNopLogger())

	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Zero(t, backlog(t, s))

	require.Len(t, got, 7)
	for i, m := range got {
		require.Equal(t, fmt.Sprintf("key-%d", i), m.Key)
		require.Equal(t, uint64(i+1), m.BlockNumber)
		require.Equal(t, "test.token", m.Topic)
		if i > 0 {
			require.Greater(t, m.ID, got[i-1].ID)
		}
	}
}

func TestRelay_FailedPublishKeepsMessages(t *testing.T) {
	s, _ := storetest.New(t, nil)
	enqueue(t, s, 4)

	pub := mocks.NewPublisher(t)
	pub.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	relay := stream.NewRelay(s, pub, stream.RelayConfig{BatchSize: 10}, nil, logger.NewNopLogger())

	n, err := relay.Drain(context.Background())
	require.ErrorContains(t, err, "broker down")
	require.Zero(t, n)
	require.Equal(t, 4, backlog(t, s))

	// the same messages go out on the next round
	var keys []string
	pub.EXPECT().Publish(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, msgs []pkgstream.Message) error {
			for _, m := range msgs {
				keys = append(keys, m.Key)
			}
			return nil
		}).Once()

	n, err = relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []string{"key-0", "key-1", "key-2", "key-3"}, keys)
	require.Zero(t, backlog(t, s))
}

func TestRelay_EmptyOutbox(t *testing.T) {
	s, _ := storetest.New(t, nil)
	pub := mocks.NewPublisher(t)

	relay := stream.NewRelay(s, pub, stream.RelayConfig{BatchSize: 10}, nil, logger.NewNopLogger())

	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRelay_RunDrainsOnNotifyAndInterval(t *testing.T) {
	s, _ := storetest.New(t, nil)
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))

	published := make(chan int, 10)
	pub := mocks.NewPublisher(t)
	pub.EXPECT().Publish(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, msgs []pkgstream.Message) error {
			published <- len(msgs)
			return nil
		})

	relay := stream.NewRelay(s, pub, stream.RelayConfig{BatchSize: 100, Interval: time.Minute}, clk, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	clk.BlockUntil(1)

	enqueue(t, s, 2)
	relay.Notify()
	require.Equal(t, 2, <-published)

	// the timer from the first round is still pending
	clk.BlockUntil(2)
	enqueue(t, s, 3)
	clk.Advance(time.Minute)
	require.Equal(t, 3, <-published)

	cancel()
	require.NoError(t, <-done)
	require.Zero(t, backlog(t, s))
}

func TestRelay_NotifyNeverBlocks(t *testing.T) {
	s, _ := storetest.New(t, nil)
	relay := stream.NewRelay(s, stream.Discard{}, stream.RelayConfig{}, nil, logger.NewNopLogger())

	for range 10 {
		relay.Notify()
	}
}
