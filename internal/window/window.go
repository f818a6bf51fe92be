// Package window keeps the most recent block headers seen by the ingestion
// loop so parent hashes of new blocks can be checked for reorgs.
package window

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

var (
	// ErrParentMismatch is returned by Append when the block does not extend the latest entry.
	ErrParentMismatch = errors.New("parent hash does not match latest block")
	// ErrNotAscending is returned by Append when the block is not above the latest entry.
	ErrNotAscending = errors.New("block number is not above latest block")
)

// Window is a fixed capacity ring buffer of contiguous block refs.
// Entries always form a parent-hash chain; the oldest entry is evicted first.
// It is owned by the ingestion loop and is not safe for concurrent use.
type Window struct {
	buf   []types.BlockRef
	start int // index of the oldest entry
	size  int
}

// New creates an empty window holding at most capacity blocks.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]types.BlockRef, capacity)}
}

// Capacity returns the maximum number of entries.
func (w *Window) Capacity() int { return len(w.buf) }

// Len returns the number of entries.
func (w *Window) Len() int { return w.size }

// Append adds b as the newest entry. If b is not adjacent to the latest entry
// the window is reset and restarted from b.
func (w *Window) Append(b types.BlockRef) error {
	if w.size > 0 {
		latest := w.at(w.size - 1)

		switch {
		case b.Number <= latest.Number:
			return fmt.Errorf("%w: got %d, latest %d", ErrNotAscending, b.Number, latest.Number)
		case b.Number == latest.Number+1:
			if b.ParentHash != latest.Hash {
				return fmt.Errorf("%w: block %d parent %s, stored %s",
					ErrParentMismatch, b.Number, b.ParentHash.Hex(), latest.Hash.Hex())
			}
		default:
			w.Reset()
		}
	}

	if w.size == len(w.buf) {
		w.buf[w.start] = b
		w.start = (w.start + 1) % len(w.buf)
		return nil
	}

	w.buf[(w.start+w.size)%len(w.buf)] = b
	w.size++
	return nil
}

// Get returns the entry for block number n.
func (w *Window) Get(n uint64) (types.BlockRef, bool) {
	if w.size == 0 {
		return types.BlockRef{}, false
	}

	oldest := w.at(0).Number
	if n < oldest || n > oldest+uint64(w.size-1) {
		return types.BlockRef{}, false
	}

	return w.at(int(n - oldest)), true
}

// Latest returns the newest entry.
func (w *Window) Latest() (types.BlockRef, bool) {
	if w.size == 0 {
		return types.BlockRef{}, false
	}
	return w.at(w.size - 1), true
}

// Oldest returns the oldest entry.
func (w *Window) Oldest() (types.BlockRef, bool) {
	if w.size == 0 {
		return types.BlockRef{}, false
	}
	return w.at(0), true
}

// TruncateFrom drops every entry with number >= n.
func (w *Window) TruncateFrom(n uint64) {
	for w.size > 0 && w.at(w.size-1).Number >= n {
		w.size--
	}
	if w.size == 0 {
		w.start = 0
	}
}

// Reset empties the window.
func (w *Window) Reset() {
	w.start = 0
	w.size = 0
}

// Blocks returns the entries from oldest to newest.
func (w *Window) Blocks() []types.BlockRef {
	out := make([]types.BlockRef, w.size)
	for i := range out {
		out[i] = w.at(i)
	}
	return out
}

func (w *Window) at(i int) types.BlockRef {
	return w.buf[(w.start+i)%len(w.buf)]
}
