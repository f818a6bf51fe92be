package store

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/internal/db"
)

// RegisterMaintenance adds the store's housekeeping to m. retain is the number
// of blocks below the checkpoint that must stay revertible.
func (s *Store) RegisterMaintenance(m db.Maintenance, retain uint64) {
	m.AddTask("prune-entity-versions", func(ctx context.Context) error {
		cp, err := readCheckpoint(s.db)
		if err != nil {
			return err
		}
		if !cp.Exists || cp.Block <= retain {
			return nil
		}

		n, err := s.pruneVersions(ctx, cp.Block-retain)
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Debugf("pruned %d entity versions below block %d", n, cp.Block-retain)
		}
		return nil
	})
}

// pruneVersions deletes versions older than below, keeping the newest one of each
// entity so a rollback can still restore it. The caller must hold the exclusive lock.
func (s *Store) pruneVersions(ctx context.Context, below uint64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entity_versions
		WHERE block_number < ?
		AND id NOT IN (
			SELECT MAX(id) FROM entity_versions WHERE block_number < ? GROUP BY kind, key
		)`, below, below)
	if err != nil {
		return 0, fmt.Errorf("failed to prune entity versions: %w", err)
	}
	return res.RowsAffected()
}
