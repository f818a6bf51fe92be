// Package reorg detects chain reorganizations against the block history window
// and rolls persisted state back to the common ancestor.
package reorg

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/internal/store"
	"github.com/goran-ethernal/ChainIngestor/internal/window"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// State of the handler.
type State int

const (
	Synced State = iota
	Diverged
)

func (s State) String() string {
	switch s {
	case Synced:
		return "synced"
	case Diverged:
		return "diverged"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HeaderSource reads canonical headers from the node.
type HeaderSource interface {
	BlockHeaders(ctx context.Context, numbers []uint64) ([]types.BlockRef, error)
}

// Rollbacker applies the rollback contract to persisted state.
type Rollbacker interface {
	Rollback(ctx context.Context, req store.RollbackRequest) (store.RollbackResult, error)
}

// Rewinder is told about checkpoint moves made by a rollback.
type Rewinder interface {
	Rewind(ctx context.Context, prev, next types.Checkpoint) error
}

// Config holds the handler settings.
type Config struct {
	// MaxDepth is the deepest reorg resolved automatically.
	MaxDepth uint64
	// StartBlock is the first ingested block.
	StartBlock uint64
	// ReorgTopic receives a control message on every rollback. Empty disables it.
	ReorgTopic string
}

// Resolution describes the outcome of a Check.
type Resolution struct {
	// RolledBack is false when the block extends the stored history.
	RolledBack bool
	// CommonAncestor is the highest block both chains agree on. When the whole
	// ingested history was replaced it is the block below StartBlock.
	CommonAncestor uint64
	FirstInvalid   uint64
	Depth          uint64
	Result         store.RollbackResult
}

// ResumeAt returns the first block to ingest after the rollback.
func (r Resolution) ResumeAt() uint64 {
	return r.FirstInvalid
}

// forkPoint is where stored history stops matching the canonical chain.
type forkPoint struct {
	firstInvalid uint64
	ancestorHash common.Hash
}

func (f forkPoint) ancestor() uint64 {
	if f.firstInvalid == 0 {
		return 0
	}
	return f.firstInvalid - 1
}

// Handler checks each new range against the window. It is driven by the
// ingestion loop and is not safe for concurrent use.
type Handler struct {
	cfg         Config
	window      *window.Window
	headers     HeaderSource
	store       Rollbacker
	checkpoints Rewinder
	clock       clock.Clock
	log         *logger.Logger

	state State
}

// NewHandler creates a handler in the Synced state.
func NewHandler(
	cfg Config,
	w *window.Window,
	headers HeaderSource,
	rollbacker Rollbacker,
	checkpoints Rewinder,
	clk clock.Clock,
	log *logger.Logger,
) *Handler {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	reorgStateLog(Synced)

	return &Handler{
		cfg:         cfg,
		window:      w,
		headers:     headers,
		store:       rollbacker,
		checkpoints: checkpoints,
		clock:       clk,
		log:         log,
		state:       Synced,
	}
}

// State returns the current state.
func (h *Handler) State() State {
	return h.state
}

// Check compares the parent of first, the lowest block of a freshly fetched
// range, with the window. On a mismatch it finds the common ancestor, rolls
// back everything above it and returns the resolution. The caller must discard
// the fetched range and resume at Resolution.ResumeAt.
//
// Errors: *InconsistentViewError is transient, *UnresolvedReorgError is fatal.
// Any other error leaves nothing rolled back and may be retried.
func (h *Handler) Check(ctx context.Context, first types.BlockRef) (Resolution, error) {
	if first.Number == 0 {
		return Resolution{}, nil
	}

	parent, ok := h.window.Get(first.Number - 1)
	if !ok || parent.Hash == first.ParentHash {
		h.setState(Synced)
		return Resolution{}, nil
	}

	h.setState(Diverged)
	h.log.Warnw("parent hash mismatch",
		"block", first.Number,
		"stored_parent", parent.Hash.Hex(),
		"observed_parent", first.ParentHash.Hex(),
	)

	fork, err := h.findForkPoint(ctx, first, parent)
	if err != nil {
		return Resolution{}, err
	}

	depth := parent.Number - fork.firstInvalid + 1
	res, err := h.store.Rollback(ctx, store.RollbackRequest{
		FirstInvalid: fork.firstInvalid,
		AncestorHash: fork.ancestorHash,
		Depth:        depth,
		Reason:       store.ReasonReorg,
		StartBlock:   h.cfg.StartBlock,
		ReorgTopic:   h.cfg.ReorgTopic,
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to roll back from block %d: %w", fork.firstInvalid, err)
	}

	h.window.TruncateFrom(fork.firstInvalid)

	if err := h.checkpoints.Rewind(ctx, res.PreviousCheckpoint, res.Checkpoint); err != nil {
		return Resolution{}, err
	}

	reorgDetectedLog(depth, h.clock.Now())
	h.setState(Synced)

	h.log.Warnw("reorg rolled back",
		"first_invalid", fork.firstInvalid,
		"depth", depth,
		"events_removed", res.EventsRemoved,
		"entities_reverted", res.EntitiesReverted,
		"entities_deleted", res.EntitiesDeleted,
		"checkpoint", res.Checkpoint.String(),
	)

	return Resolution{
		RolledBack:     true,
		CommonAncestor: fork.ancestor(),
		FirstInvalid:   fork.firstInvalid,
		Depth:          depth,
		Result:         res,
	}, nil
}

// findForkPoint walks back from parent, at most MaxDepth blocks, until the
// stored hash equals the canonical one. If every stored block down to the
// first ingested one was replaced, nothing older was ever persisted and the
// whole history is invalid.
func (h *Handler) findForkPoint(ctx context.Context, first, parent types.BlockRef) (forkPoint, error) {
	lowest := uint64(0)
	if parent.Number > h.cfg.MaxDepth {
		lowest = parent.Number - h.cfg.MaxDepth
	}

	oldest, _ := h.window.Oldest()
	walkedOff := false
	if lowest < oldest.Number {
		lowest = oldest.Number
		walkedOff = true
	}

	numbers := make([]uint64, 0, parent.Number-lowest+1)
	for n := parent.Number; ; n-- {
		numbers = append(numbers, n)
		if n == lowest {
			break
		}
	}

	canonical, err := h.headers.BlockHeaders(ctx, numbers)
	if err != nil {
		return forkPoint{}, fmt.Errorf("failed to fetch headers for fork search: %w", err)
	}
	if len(canonical) != len(numbers) {
		return forkPoint{}, fmt.Errorf("fork search requested %d headers, got %d", len(numbers), len(canonical))
	}

	for i, n := range numbers {
		stored, _ := h.window.Get(n)
		if stored.Hash != canonical[i].Hash {
			continue
		}

		if n == parent.Number {
			inconsistentViews.Inc()
			return forkPoint{}, &InconsistentViewError{
				Block:          first.Number,
				ExpectedParent: parent.Hash,
				ObservedParent: first.ParentHash,
			}
		}
		return forkPoint{firstInvalid: n + 1, ancestorHash: stored.Hash}, nil
	}

	if walkedOff && oldest.Number > 0 && oldest.Number <= h.cfg.StartBlock {
		return forkPoint{
			firstInvalid: oldest.Number,
			ancestorHash: canonical[len(canonical)-1].ParentHash,
		}, nil
	}

	reason := fmt.Sprintf("no common ancestor within %d blocks", h.cfg.MaxDepth)
	if walkedOff {
		reason = fmt.Sprintf("no common ancestor down to oldest stored block %d", oldest.Number)
	}

	reorgsUnresolved.Inc()
	return forkPoint{}, &UnresolvedReorgError{
		Block:          first.Number,
		Depth:          uint64(len(numbers)),
		MaxDepth:       h.cfg.MaxDepth,
		ExpectedParent: parent.Hash,
		ObservedParent: first.ParentHash,
		Reason:         reason,
	}
}

func (h *Handler) setState(s State) {
	if h.state != s {
		h.log.Debugf("reorg handler %s -> %s", h.state, s)
	}
	h.state = s
	reorgStateLog(s)
}
