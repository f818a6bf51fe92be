package reorg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// UnresolvedReorgError is returned when no common ancestor is found within the
// configured depth or the stored history. It is fatal and needs an operator.
type UnresolvedReorgError struct {
	Block          uint64
	Depth          uint64
	MaxDepth       uint64
	ExpectedParent common.Hash
	ObservedParent common.Hash
	Reason         string
}

func (e *UnresolvedReorgError) Error() string {
	return fmt.Sprintf("unresolved reorg at block %d (searched %d blocks, max depth %d): %s; stored parent %s, chain parent %s",
		e.Block, e.Depth, e.MaxDepth, e.Reason, e.ExpectedParent.Hex(), e.ObservedParent.Hex())
}

// InconsistentViewError is returned when a block's parent disagrees with the
// stored history but the node reports the stored parent as canonical. The node
// changed its view between calls; the range should be refetched.
type InconsistentViewError struct {
	Block          uint64
	ExpectedParent common.Hash
	ObservedParent common.Hash
}

func (e *InconsistentViewError) Error() string {
	return fmt.Sprintf("inconsistent chain view at block %d: parent %s, stored %s",
		e.Block, e.ObservedParent.Hex(), e.ExpectedParent.Hex())
}
