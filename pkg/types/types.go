package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// BlockRef identifies a block and its link to the previous one.
type BlockRef struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  uint64
}

func (b BlockRef) String() string {
	return fmt.Sprintf("#%d (%s)", b.Number, b.Hash.TerminalString())
}

// Checkpoint is the last block whose effects are durably applied.
// A zero Checkpoint with Exists false means nothing has been processed yet.
type Checkpoint struct {
	Block  uint64
	Hash   common.Hash
	Exists bool
}

// Next returns the first block that still needs processing.
func (c Checkpoint) Next(startBlock uint64) uint64 {
	if !c.Exists {
		return startBlock
	}
	return c.Block + 1
}

func (c Checkpoint) String() string {
	if !c.Exists {
		return "none"
	}
	return fmt.Sprintf("#%d (%s)", c.Block, c.Hash.TerminalString())
}

// EntityRef names one mutable projection row.
type EntityRef struct {
	Kind string
	Key  string
}

func (e EntityRef) String() string {
	return e.Kind + ":" + e.Key
}
