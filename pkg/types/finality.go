package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// BlockFinality selects which block tag is treated as the chain head.
type BlockFinality string

const (
	// FinalityFinalized follows the finalized tag; reorgs should never reach it.
	FinalityFinalized BlockFinality = "finalized"

	// FinalitySafe follows the safe tag.
	FinalitySafe BlockFinality = "safe"

	// FinalityLatest follows the tip; reorgs are expected and handled.
	FinalityLatest BlockFinality = "latest"
)

func (f BlockFinality) String() string {
	return string(f)
}

// IsValid checks if the BlockFinality value is valid.
func (f BlockFinality) IsValid() bool {
	switch f {
	case FinalityFinalized, FinalitySafe, FinalityLatest:
		return true
	default:
		return false
	}
}

// BlockNumber maps the finality to the JSON-RPC block tag.
func (f BlockFinality) BlockNumber() rpc.BlockNumber {
	switch f {
	case FinalityFinalized:
		return rpc.FinalizedBlockNumber
	case FinalitySafe:
		return rpc.SafeBlockNumber
	default:
		return rpc.LatestBlockNumber
	}
}

// ParseBlockFinality parses a string into a BlockFinality, empty meaning latest.
func ParseBlockFinality(s string) (BlockFinality, error) {
	if s == "" {
		return FinalityLatest, nil
	}

	f := BlockFinality(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid block finality: %s (must be one of: finalized, safe, latest)", s)
	}
	return f, nil
}
