package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
	"github.com/russross/meddler"
)

// PendingOutbox returns up to limit unpublished messages in id order.
func (s *Store) PendingOutbox(ctx context.Context, limit int) ([]stream.Message, error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	var rows []*outboxRow
	err := meddler.QueryAll(s.db, &rows, `
		SELECT id, topic, msg_key, block_number, payload, created_at
		FROM outbox ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}

	msgs := make([]stream.Message, len(rows))
	for i, r := range rows {
		msgs[i] = stream.Message{
			ID:          r.ID,
			Topic:       r.Topic,
			Key:         r.Key,
			BlockNumber: r.BlockNumber,
			Payload:     r.Payload,
		}
	}
	return msgs, nil
}

// AckOutbox deletes published messages.
func (s *Store) AckOutbox(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to ack %d outbox messages: %w", len(ids), err)
	}
	return nil
}

// OutboxBacklog returns the number of unpublished messages.
func (s *Store) OutboxBacklog(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count outbox: %w", err)
	}
	return n, nil
}
