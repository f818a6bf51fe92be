package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"github.com/google/uuid"
)

// Rollback reasons recorded in the reorg log.
const (
	ReasonReorg    = "reorg"
	ReasonOperator = "operator"
)

// RollbackRequest describes a rollback to FirstInvalid, the first block whose
// effects are removed. AncestorHash is the hash of block FirstInvalid-1.
type RollbackRequest struct {
	FirstInvalid uint64
	AncestorHash common.Hash
	Depth        uint64
	Reason       string

	// StartBlock is the configured first block. Rolling back to it or below
	// clears the checkpoint instead of moving it.
	StartBlock uint64

	// ReorgTopic receives a control message for stream consumers. Empty disables it.
	ReorgTopic string
}

// RollbackResult summarizes what a rollback removed.
type RollbackResult struct {
	ID                 string
	PreviousCheckpoint types.Checkpoint
	Checkpoint         types.Checkpoint
	EventsRemoved      int64
	EntitiesReverted   int
	EntitiesDeleted    int
	OutboxDropped      int64
	Touched            []types.EntityRef
}

// Rollback removes every effect recorded at or above req.FirstInvalid and moves
// the checkpoint to the common ancestor. It runs in one transaction under the
// exclusive lock, so no batch can commit in between.
func (s *Store) Rollback(ctx context.Context, req RollbackRequest) (RollbackResult, error) {
	if req.Reason == "" {
		req.Reason = ReasonReorg
	}

	unlock := s.maintenance.AcquireExclusiveLock()
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RollbackResult{}, fmt.Errorf("failed to begin rollback transaction: %w", err)
	}
	defer s.rollbackTx(tx)

	prev, err := readCheckpoint(tx)
	if err != nil {
		return RollbackResult{}, err
	}

	res := RollbackResult{ID: uuid.NewString(), PreviousCheckpoint: prev}
	from := req.FirstInvalid

	r, err := tx.ExecContext(ctx, `DELETE FROM events WHERE block_number >= ?`, from)
	if err != nil {
		return RollbackResult{}, fmt.Errorf("failed to delete events: %w", err)
	}
	res.EventsRemoved, _ = r.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_versions WHERE block_number >= ?`, from); err != nil {
		return RollbackResult{}, fmt.Errorf("failed to delete entity versions: %w", err)
	}

	if err := s.revertEntities(ctx, tx, from, &res); err != nil {
		return RollbackResult{}, err
	}

	r, err = tx.ExecContext(ctx, `DELETE FROM outbox WHERE block_number >= ?`, from)
	if err != nil {
		return RollbackResult{}, fmt.Errorf("failed to drop outbox messages: %w", err)
	}
	res.OutboxDropped, _ = r.RowsAffected()

	var ancestor uint64
	if from > 0 {
		ancestor = from - 1
	}

	if req.ReorgTopic != "" {
		notice, err := json.Marshal(stream.ReorgNotice{
			FirstInvalid:   from,
			CommonAncestor: ancestor,
			AncestorHash:   req.AncestorHash,
			Depth:          req.Depth,
			Reason:         req.Reason,
		})
		if err != nil {
			return RollbackResult{}, fmt.Errorf("failed to encode reorg notice: %w", err)
		}
		if err := enqueue(tx, req.ReorgTopic, res.ID, from, notice, s.clock.Now()); err != nil {
			return RollbackResult{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM block_history WHERE block_number >= ?`, from); err != nil {
		return RollbackResult{}, fmt.Errorf("failed to delete block history: %w", err)
	}

	if from > req.StartBlock {
		res.Checkpoint = types.Checkpoint{Block: ancestor, Hash: req.AncestorHash, Exists: true}
	}
	if err := writeCheckpoint(ctx, tx, res.Checkpoint, s.clock.Now()); err != nil {
		return RollbackResult{}, err
	}

	var prevBlock *uint64
	if prev.Exists {
		prevBlock = &prev.Block
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reorgs (id, first_invalid, ancestor_hash, depth, previous_checkpoint, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, from, req.AncestorHash.Hex(), req.Depth, prevBlock, req.Reason, s.clock.Now().Unix())
	if err != nil {
		return RollbackResult{}, fmt.Errorf("failed to record rollback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RollbackResult{}, fmt.Errorf("failed to commit rollback: %w", err)
	}

	s.log.Infow("rolled back",
		"first_invalid", from,
		"depth", req.Depth,
		"reason", req.Reason,
		"previous_checkpoint", prev.String(),
		"checkpoint", res.Checkpoint.String(),
		"events_removed", res.EventsRemoved,
		"entities_reverted", res.EntitiesReverted,
		"entities_deleted", res.EntitiesDeleted,
		"outbox_dropped", res.OutboxDropped,
	)

	return res, nil
}

// revertEntities restores every entity changed at or above from to its newest
// remaining version. Versions at or above from must already be deleted.
func (s *Store) revertEntities(ctx context.Context, tx *sql.Tx, from uint64, res *RollbackResult) error {
	rows, err := tx.QueryContext(ctx, `SELECT kind, key FROM entities WHERE last_updated_block >= ? ORDER BY kind, key`, from)
	if err != nil {
		return fmt.Errorf("failed to query changed entities: %w", err)
	}

	var refs []types.EntityRef
	for rows.Next() {
		var ref types.EntityRef
		if err := rows.Scan(&ref.Kind, &ref.Key); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan changed entity: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("failed to query changed entities: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to query changed entities: %w", err)
	}

	for _, ref := range refs {
		var v entityVersionRow
		err := tx.QueryRowContext(ctx, `
			SELECT state, block_number, log_index FROM entity_versions
			WHERE kind = ? AND key = ? ORDER BY id DESC LIMIT 1`, ref.Kind, ref.Key).
			Scan(&v.State, &v.BlockNumber, &v.LogIndex)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE kind = ? AND key = ?`, ref.Kind, ref.Key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", ref, err)
			}
			res.EntitiesDeleted++
		case err != nil:
			return fmt.Errorf("failed to read version of %s: %w", ref, err)
		default:
			_, err := tx.ExecContext(ctx, `
				UPDATE entities SET state = ?, last_updated_block = ?, last_updated_log_index = ?
				WHERE kind = ? AND key = ?`, v.State, v.BlockNumber, v.LogIndex, ref.Kind, ref.Key)
			if err != nil {
				return fmt.Errorf("failed to restore %s: %w", ref, err)
			}
			res.EntitiesReverted++
		}
	}

	res.Touched = refs
	return nil
}
