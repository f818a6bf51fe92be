// Package store persists ingestion state in SQLite: the checkpoint, block history,
// the event journal, versioned entities, the stream outbox and the reorg log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/db"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"github.com/russross/meddler"
)

// Store is the persistence collaborator of the ingestion loop.
// Batches hold the shared operation lock; rollbacks and maintenance hold it exclusively.
type Store struct {
	db          *sql.DB
	maintenance db.Maintenance
	clock       clock.Clock
	log         *logger.Logger
}

// New creates a store over an already migrated database.
func New(sqlDB *sql.DB, maintenance db.Maintenance, clk clock.Clock, log *logger.Logger) *Store {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Store{db: sqlDB, maintenance: maintenance, clock: clk, log: log}
}

type checkpointRow struct {
	BlockNumber uint64      `meddler:"block_number"`
	BlockHash   common.Hash `meddler:"block_hash,hash"`
	UpdatedAt   int64       `meddler:"updated_at"`
}

type blockRow struct {
	BlockNumber    uint64      `meddler:"block_number"`
	BlockHash      common.Hash `meddler:"block_hash,hash"`
	ParentHash     common.Hash `meddler:"parent_hash,hash"`
	BlockTimestamp uint64      `meddler:"block_timestamp"`
}

func (b *blockRow) ref() types.BlockRef {
	return types.BlockRef{
		Number:     b.BlockNumber,
		Hash:       b.BlockHash,
		ParentHash: b.ParentHash,
		Timestamp:  b.BlockTimestamp,
	}
}

// Checkpoint returns the last committed checkpoint.
func (s *Store) Checkpoint(ctx context.Context) (types.Checkpoint, error) {
	return readCheckpoint(s.db)
}

func readCheckpoint(q meddler.DB) (types.Checkpoint, error) {
	var row checkpointRow
	err := meddler.QueryRow(q, &row, `SELECT block_number, block_hash, updated_at FROM checkpoint WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Checkpoint{}, nil
	}
	if err != nil {
		return types.Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	return types.Checkpoint{Block: row.BlockNumber, Hash: row.BlockHash, Exists: true}, nil
}

// RecentBlocks returns up to limit of the newest stored block refs in ascending order.
func (s *Store) RecentBlocks(ctx context.Context, limit int) ([]types.BlockRef, error) {
	var rows []*blockRow
	err := meddler.QueryAll(s.db, &rows, `
		SELECT block_number, block_hash, parent_hash, block_timestamp FROM (
			SELECT * FROM block_history ORDER BY block_number DESC LIMIT ?
		) ORDER BY block_number ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query block history: %w", err)
	}

	out := make([]types.BlockRef, len(rows))
	for i, r := range rows {
		out[i] = r.ref()
	}
	return out, nil
}

// StoredBlock returns the stored ref of block n.
func (s *Store) StoredBlock(ctx context.Context, n uint64) (types.BlockRef, bool, error) {
	var row blockRow
	err := meddler.QueryRow(s.db, &row,
		`SELECT block_number, block_hash, parent_hash, block_timestamp FROM block_history WHERE block_number = ?`, n)
	if errors.Is(err, sql.ErrNoRows) {
		return types.BlockRef{}, false, nil
	}
	if err != nil {
		return types.BlockRef{}, false, fmt.Errorf("failed to query block %d: %w", n, err)
	}
	return row.ref(), true, nil
}

// LoadEntity reads committed entity state into out.
func (s *Store) LoadEntity(ctx context.Context, kind, key string, out any) (bool, error) {
	return loadEntity(ctx, s.db, kind, key, out)
}

// Close is a no-op; the caller owns the database handle.
func (s *Store) Close() error { return nil }

// rollbackTx aborts tx unless it was already committed.
func (s *Store) rollbackTx(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Errorf("failed to rollback transaction: %v", err)
	}
}
