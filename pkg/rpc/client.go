package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// ChainClient defines the reads the ingestion loop needs from a blockchain node.
// Every method is an idempotent read and may be retried.
type ChainClient interface {
	// Close closes the RPC client connection.
	Close()

	// CurrentHead returns the number of the head block at the configured finality.
	CurrentHead(ctx context.Context) (uint64, error)

	// Logs returns the logs emitted by addresses in [from, to], ordered by block and log index.
	// BlockTimestamp is left zero; the caller fills it in from the block headers.
	Logs(ctx context.Context, addresses []common.Address, from, to uint64) ([]events.RawLog, error)

	// BlockHeader returns the header for a specific block number.
	BlockHeader(ctx context.Context, number uint64) (types.BlockRef, error)

	// BlockHeaders returns headers for multiple block numbers in a single batch call,
	// in the order requested.
	BlockHeaders(ctx context.Context, numbers []uint64) ([]types.BlockRef, error)
}
