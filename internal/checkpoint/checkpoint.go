// Package checkpoint owns the ingestion checkpoint: the last block whose effects
// are durably applied. It is the only writer of the checkpoint outside rollbacks.
package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// Reader reads the committed checkpoint.
type Reader interface {
	Checkpoint(ctx context.Context) (types.Checkpoint, error)
}

// Batch is an open transaction carrying a batch's effects.
type Batch interface {
	Checkpoint(ctx context.Context) (types.Checkpoint, error)
	SetCheckpoint(ctx context.Context, cp types.Checkpoint) error
	Commit() error
}

// Manager tracks the checkpoint and enforces that it only moves forward on
// commit and only moves back through Rewind.
type Manager struct {
	reader     Reader
	startBlock uint64
	log        *logger.Logger

	mu      sync.Mutex
	current types.Checkpoint
	loaded  bool
}

// NewManager creates a manager. Nothing is read until the first Get.
func NewManager(reader Reader, startBlock uint64, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{reader: reader, startBlock: startBlock, log: log}
}

// Get returns the checkpoint, loading it from the store on first use or after
// a failed commit.
func (m *Manager) Get(ctx context.Context) (types.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.get(ctx)
}

func (m *Manager) get(ctx context.Context) (types.Checkpoint, error) {
	if m.loaded {
		return m.current, nil
	}

	cp, err := m.reader.Checkpoint(ctx)
	if err != nil {
		return types.Checkpoint{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	m.current = cp
	m.loaded = true
	if cp.Exists {
		checkpointBlockLog(cp.Block)
	}

	m.log.Infof("checkpoint loaded: %s", cp)
	return cp, nil
}

// Next returns the first block that still needs processing.
func (m *Manager) Next(ctx context.Context) (uint64, error) {
	cp, err := m.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cp.Next(m.startBlock), nil
}

// Commit writes next into batch and commits it, making the batch effects and the
// checkpoint durable together. A failed commit leaves nothing applied and the
// manager reloads on the next Get. An InvariantError is returned when next does
// not advance the checkpoint or when the stored value disagrees afterwards.
func (m *Manager) Commit(ctx context.Context, batch Batch, next types.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := m.get(ctx)
	if err != nil {
		return err
	}

	switch {
	case !next.Exists:
		return invariantf("commit", "cannot commit an empty checkpoint")
	case cur.Exists && next.Block <= cur.Block:
		return invariantf("commit", "checkpoint would move from %d to %d", cur.Block, next.Block)
	case !cur.Exists && next.Block < m.startBlock:
		return invariantf("commit", "checkpoint %d is below start block %d", next.Block, m.startBlock)
	}

	inTx, err := batch.Checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint in batch: %w", err)
	}
	if inTx != cur {
		return invariantf("commit", "stored checkpoint %s differs from tracked %s", inTx, cur)
	}

	if err := batch.SetCheckpoint(ctx, next); err != nil {
		return err
	}

	if err := batch.Commit(); err != nil {
		m.loaded = false
		return err
	}

	stored, err := m.reader.Checkpoint(ctx)
	if err != nil {
		m.loaded = false
		return fmt.Errorf("failed to verify checkpoint after commit: %w", err)
	}
	if stored != next {
		m.loaded = false
		return invariantf("commit", "committed %s but store reports %s", next, stored)
	}

	m.current = next
	checkpointBlockLog(next.Block)
	checkpointCommits.Inc()

	m.log.Debugf("checkpoint advanced: %s -> %s", cur, next)
	return nil
}

// Rewind records a rollback that already moved the stored checkpoint from prev to next.
func (m *Manager) Rewind(ctx context.Context, prev, next types.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := m.get(ctx)
	if err != nil {
		return err
	}

	if prev != cur {
		m.loaded = false
		return invariantf("rewind", "rollback started from %s but tracked checkpoint is %s", prev, cur)
	}
	if next.Exists && cur.Exists && next.Block > cur.Block {
		return invariantf("rewind", "rollback would move checkpoint forward from %d to %d", cur.Block, next.Block)
	}

	stored, err := m.reader.Checkpoint(ctx)
	if err != nil {
		m.loaded = false
		return fmt.Errorf("failed to verify checkpoint after rollback: %w", err)
	}
	if stored != next {
		m.loaded = false
		return invariantf("rewind", "rolled back to %s but store reports %s", next, stored)
	}

	m.current = next
	checkpointRewinds.Inc()
	if next.Exists {
		checkpointBlockLog(next.Block)
	} else {
		checkpointBlockLog(0)
	}

	m.log.Warnf("checkpoint rewound: %s -> %s", prev, next)
	return nil
}
