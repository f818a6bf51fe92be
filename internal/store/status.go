package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"github.com/russross/meddler"
)

// ReorgRecord is one entry of the rollback log.
type ReorgRecord struct {
	ID                 string      `meddler:"id"`
	FirstInvalid       uint64      `meddler:"first_invalid"`
	AncestorHash       common.Hash `meddler:"ancestor_hash,hash"`
	Depth              uint64      `meddler:"depth"`
	PreviousCheckpoint *uint64     `meddler:"previous_checkpoint"`
	Reason             string      `meddler:"reason"`
	CreatedAt          int64       `meddler:"created_at"`
}

// Time returns when the rollback was recorded.
func (r ReorgRecord) Time() time.Time {
	return time.Unix(r.CreatedAt, 0).UTC()
}

// Status is a point-in-time summary of the database.
type Status struct {
	Checkpoint    types.Checkpoint
	HistoryBlocks int
	OldestBlock   uint64
	NewestBlock   uint64
	Events        int64
	Anomalies     int64
	Entities      int64
	OutboxBacklog int
	Reorgs        int64
}

// Status collects counters for the status command and the metrics gauges.
func (s *Store) Status(ctx context.Context) (Status, error) {
	var st Status

	cp, err := readCheckpoint(s.db)
	if err != nil {
		return Status{}, err
	}
	st.Checkpoint = cp

	var oldest, newest *uint64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(block_number), MAX(block_number) FROM block_history`).
		Scan(&st.HistoryBlocks, &oldest, &newest)
	if err != nil {
		return Status{}, fmt.Errorf("failed to summarize block history: %w", err)
	}
	if oldest != nil {
		st.OldestBlock = *oldest
	}
	if newest != nil {
		st.NewestBlock = *newest
	}

	counts := []struct {
		dst   *int64
		query string
	}{
		{&st.Events, `SELECT COUNT(*) FROM events`},
		{&st.Anomalies, `SELECT COUNT(*) FROM events WHERE family = 'anomaly'`},
		{&st.Entities, `SELECT COUNT(*) FROM entities`},
		{&st.Reorgs, `SELECT COUNT(*) FROM reorgs`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return Status{}, fmt.Errorf("failed to run %q: %w", c.query, err)
		}
	}

	if st.OutboxBacklog, err = s.OutboxBacklog(ctx); err != nil {
		return Status{}, err
	}

	return st, nil
}

// Reorgs returns up to limit of the most recent rollbacks, newest first.
func (s *Store) Reorgs(ctx context.Context, limit int) ([]*ReorgRecord, error) {
	var out []*ReorgRecord
	err := meddler.QueryAll(s.db, &out, `
		SELECT id, first_invalid, ancestor_hash, depth, previous_checkpoint, reason, created_at
		FROM reorgs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reorgs: %w", err)
	}
	return out, nil
}
