package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/handler"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"github.com/russross/meddler"
)

// BatchTx is one atomic unit of ingestion. Nothing written through it is
// visible until Commit; Rollback (or a crash) discards everything.
type BatchTx struct {
	store   *Store
	tx      *sql.Tx
	unlock  func()
	done    bool
	touched map[types.EntityRef]struct{}
	order   []types.EntityRef
}

// BeginBatch opens a batch transaction. It blocks while a rollback or maintenance is running.
func (s *Store) BeginBatch(ctx context.Context) (*BatchTx, error) {
	unlock := s.maintenance.AcquireOperationLock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &BatchTx{
		store:   s,
		tx:      tx,
		unlock:  unlock,
		touched: make(map[types.EntityRef]struct{}),
	}, nil
}

// Commit makes the batch durable and releases the operation lock.
func (b *BatchTx) Commit() error {
	if b.done {
		return sql.ErrTxDone
	}
	b.done = true
	defer b.unlock()

	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch. It is safe to call after Commit.
func (b *BatchTx) Rollback() {
	if b.done {
		return
	}
	b.done = true
	defer b.unlock()

	b.store.rollbackTx(b.tx)
}

// Touched returns the entities saved in this batch in first-touch order.
func (b *BatchTx) Touched() []types.EntityRef {
	return append([]types.EntityRef(nil), b.order...)
}

// Checkpoint reads the checkpoint as seen by this transaction.
func (b *BatchTx) Checkpoint(ctx context.Context) (types.Checkpoint, error) {
	return readCheckpoint(b.tx)
}

// SetCheckpoint writes the singleton checkpoint row.
func (b *BatchTx) SetCheckpoint(ctx context.Context, cp types.Checkpoint) error {
	return writeCheckpoint(ctx, b.tx, cp, b.store.clock.Now())
}

func writeCheckpoint(ctx context.Context, tx *sql.Tx, cp types.Checkpoint, now time.Time) error {
	if !cp.Exists {
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint`); err != nil {
			return fmt.Errorf("failed to clear checkpoint: %w", err)
		}
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoint (id, block_number, block_hash, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			block_number = excluded.block_number,
			block_hash = excluded.block_hash,
			updated_at = excluded.updated_at`,
		cp.Block, cp.Hash.Hex(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// PutBlocks records block headers in the history table.
func (b *BatchTx) PutBlocks(ctx context.Context, blocks []types.BlockRef) error {
	for _, blk := range blocks {
		_, err := b.tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO block_history (block_number, block_hash, parent_hash, block_timestamp)
			VALUES (?, ?, ?, ?)`,
			blk.Number, blk.Hash.Hex(), blk.ParentHash.Hex(), blk.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to record block %d: %w", blk.Number, err)
		}
	}
	return nil
}

// PruneHistory removes block history below the given block.
func (b *BatchTx) PruneHistory(ctx context.Context, below uint64) error {
	if _, err := b.tx.ExecContext(ctx, `DELETE FROM block_history WHERE block_number < ?`, below); err != nil {
		return fmt.Errorf("failed to prune block history: %w", err)
	}
	return nil
}

// RecordEvent journals ev keyed by (tx hash, log index). It reports false when
// the log was already journaled, in which case the caller must not apply it again.
func (b *BatchTx) RecordEvent(ctx context.Context, ev events.TypedEvent) (bool, error) {
	payload, err := json.Marshal(events.NewEnvelope(ev))
	if err != nil {
		return false, fmt.Errorf("failed to encode event %s: %w", ev.Key(), err)
	}

	row := &JournalEntry{
		TxHash:      ev.Meta.TxHash,
		LogIndex:    ev.Meta.LogIndex,
		BlockNumber: ev.Meta.BlockNumber,
		BlockHash:   ev.Meta.BlockHash,
		TxIndex:     ev.Meta.TxIndex,
		Contract:    ev.Meta.Contract,
		Family:      string(ev.Family()),
		Name:        ev.Name(),
		Payload:     string(payload),
	}
	values, err := meddler.Values(row, true)
	if err != nil {
		return false, fmt.Errorf("failed to journal event %s: %w", ev.Key(), err)
	}

	res, err := b.tx.ExecContext(ctx, journalInsert, values...)
	if err != nil {
		return false, fmt.Errorf("failed to journal event %s: %w", ev.Key(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to journal event %s: %w", ev.Key(), err)
	}

	return n == 1, nil
}

type outboxRow struct {
	ID          int64  `meddler:"id,pk"`
	Topic       string `meddler:"topic"`
	Key         string `meddler:"msg_key"`
	BlockNumber uint64 `meddler:"block_number"`
	Payload     []byte `meddler:"payload"`
	CreatedAt   int64  `meddler:"created_at"`
}

// Enqueue appends a message to the outbox. It is published after the batch commits.
func (b *BatchTx) Enqueue(ctx context.Context, topic, key string, blockNumber uint64, payload []byte) error {
	return enqueue(b.tx, topic, key, blockNumber, payload, b.store.clock.Now())
}

func enqueue(q meddler.DB, topic, key string, blockNumber uint64, payload []byte, now time.Time) error {
	row := &outboxRow{
		Topic:       topic,
		Key:         key,
		BlockNumber: blockNumber,
		Payload:     payload,
		CreatedAt:   now.Unix(),
	}
	if err := meddler.Insert(q, "outbox", row); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", key, err)
	}
	return nil
}

// Scope returns the entity scope handlers use while applying ev.
func (b *BatchTx) Scope(ev events.TypedEvent) handler.Scope {
	return &scope{batch: b, block: ev.Meta.BlockNumber, logIndex: ev.Meta.LogIndex}
}

type scope struct {
	batch    *BatchTx
	block    uint64
	logIndex uint
}

func (s *scope) Load(ctx context.Context, kind, key string, out any) (bool, error) {
	return loadEntity(ctx, s.batch.tx, kind, key, out)
}

func (s *scope) Save(ctx context.Context, kind, key string, state any) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode %s:%s: %w", kind, key, err)
	}

	_, err = s.batch.tx.ExecContext(ctx, `
		INSERT INTO entities (kind, key, state, last_updated_block, last_updated_log_index)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, key) DO UPDATE SET
			state = excluded.state,
			last_updated_block = excluded.last_updated_block,
			last_updated_log_index = excluded.last_updated_log_index`,
		kind, key, string(encoded), s.block, s.logIndex)
	if err != nil {
		return fmt.Errorf("failed to save %s:%s: %w", kind, key, err)
	}

	version := &entityVersionRow{
		Kind:        kind,
		Key:         key,
		State:       string(encoded),
		BlockNumber: s.block,
		LogIndex:    uint64(s.logIndex),
	}
	if err := meddler.Insert(s.batch.tx, "entity_versions", version); err != nil {
		return fmt.Errorf("failed to version %s:%s: %w", kind, key, err)
	}

	ref := types.EntityRef{Kind: kind, Key: key}
	if _, ok := s.batch.touched[ref]; !ok {
		s.batch.touched[ref] = struct{}{}
		s.batch.order = append(s.batch.order, ref)
	}

	return nil
}

type entityVersionRow struct {
	ID          int64  `meddler:"id,pk"`
	Kind        string `meddler:"kind"`
	Key         string `meddler:"key"`
	State       string `meddler:"state"`
	BlockNumber uint64 `meddler:"block_number"`
	LogIndex    uint64 `meddler:"log_index"`
}

func loadEntity(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, kind, key string, out any) (bool, error) {
	var state string
	err := q.QueryRowContext(ctx, `SELECT state FROM entities WHERE kind = ? AND key = ?`, kind, key).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s:%s: %w", kind, key, err)
	}

	if err := json.Unmarshal([]byte(state), out); err != nil {
		return false, fmt.Errorf("failed to decode %s:%s: %w", kind, key, err)
	}
	return true, nil
}
