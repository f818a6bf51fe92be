// Package rpc implements the chain client over go-ethereum's JSON-RPC client.
package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/logger"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	pkgrpc "github.com/goran-ethernal/ChainIngestor/pkg/rpc"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// Compile-time check to ensure Client implements pkgrpc.ChainClient interface.
var _ pkgrpc.ChainClient = (*Client)(nil)

// maxBatch bounds the number of requests in one JSON-RPC batch.
const maxBatch = 100

// Client wraps the Ethereum RPC client with retries, timeouts and metrics.
type Client struct {
	eth *ethclient.Client
	rpc *rpc.Client

	finality types.BlockFinality
	timeout  time.Duration
	retry    retrier
	log      *logger.Logger
}

// NewClient creates a client connected to cfg.RPCURL. cfg must have defaults applied.
func NewClient(ctx context.Context, cfg config.ChainConfig, clk clock.Clock, log *logger.Logger) (*Client, error) {
	finality, err := types.ParseBlockFinality(cfg.Finality)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	return &Client{
		eth:      ethclient.NewClient(rpcClient),
		rpc:      rpcClient,
		finality: finality,
		timeout:  cfg.RequestTimeout.Duration,
		retry:    retrier{cfg: cfg.Retry, clock: clk},
		log:      log,
	}, nil
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// call runs fn with retries, applying the request timeout to every attempt.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	return c.retry.do(ctx, method, func() error {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		rpcMethodInc(method)
		start := time.Now()
		err := fn(callCtx)
		rpcMethodDuration(method, time.Since(start))

		if err != nil {
			rpcMethodError(method, err)
			c.log.Debugf("%s failed: %v", method, err)
		}
		return err
	})
}

// CurrentHead returns the number of the head block at the configured finality.
func (c *Client) CurrentHead(ctx context.Context) (uint64, error) {
	var head *gethtypes.Header
	err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		var err error
		head, err = c.eth.HeaderByNumber(ctx, big.NewInt(c.finality.BlockNumber().Int64()))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get %s head: %w", c.finality, err)
	}

	return head.Number.Uint64(), nil
}

// Logs returns the logs emitted by addresses in [from, to]. When the provider
// rejects the range as too large it is split and fetched in parts.
func (c *Client) Logs(ctx context.Context, addresses []common.Address, from, to uint64) ([]events.RawLog, error) {
	var out []events.RawLog

	for end := to; from <= to; {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: addresses,
		}

		var logs []gethtypes.Log
		err := c.call(ctx, "eth_getLogs", func(ctx context.Context) error {
			var err error
			logs, err = c.eth.FilterLogs(ctx, query)
			return err
		})

		if text, tooMany := tooManyResults(err); tooMany {
			shrunk, ok := shrinkRange(text, from, end)
			if !ok {
				return nil, fmt.Errorf("failed to get logs for block %d: %w", from, err)
			}
			c.log.Debugf("eth_getLogs range [%d, %d] too large, retrying [%d, %d]", from, end, from, shrunk)
			end = shrunk
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get logs for [%d, %d]: %w", from, end, err)
		}

		for _, l := range logs {
			if l.Removed {
				continue
			}
			out = append(out, events.FromLog(l, 0))
		}

		from, end = end+1, to
	}

	return out, nil
}

// BlockHeader returns the header for a specific block number.
func (c *Client) BlockHeader(ctx context.Context, number uint64) (types.BlockRef, error) {
	var header *gethtypes.Header
	err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		var err error
		header, err = c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	if err != nil {
		return types.BlockRef{}, fmt.Errorf("failed to get header %d: %w", number, err)
	}

	return toBlockRef(header), nil
}

// BlockHeaders returns headers for multiple block numbers in batch calls of at
// most maxBatch requests, in the order requested.
func (c *Client) BlockHeaders(ctx context.Context, numbers []uint64) ([]types.BlockRef, error) {
	out := make([]types.BlockRef, 0, len(numbers))

	for i := 0; i < len(numbers); i += maxBatch {
		chunk := numbers[i:min(i+maxBatch, len(numbers))]
		headers := make([]*gethtypes.Header, len(chunk))

		err := c.call(ctx, "eth_getBlockByNumber_batch", func(ctx context.Context) error {
			batch := make([]rpc.BatchElem, len(chunk))
			for j, n := range chunk {
				headers[j] = nil
				batch[j] = rpc.BatchElem{
					Method: "eth_getBlockByNumber",
					Args:   []any{toBlockNumArg(n), false},
					Result: &headers[j],
				}
			}

			if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
				return err
			}
			for j, elem := range batch {
				if elem.Error != nil {
					return fmt.Errorf("block %d: %w", chunk[j], elem.Error)
				}
				if headers[j] == nil {
					return fmt.Errorf("block %d: %w", chunk[j], ethereum.NotFound)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get headers: %w", err)
		}

		for _, h := range headers {
			out = append(out, toBlockRef(h))
		}
	}

	return out, nil
}

func toBlockRef(h *gethtypes.Header) types.BlockRef {
	return types.BlockRef{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Timestamp:  h.Time,
	}
}

// toBlockNumArg converts a block number to hex format.
func toBlockNumArg(blockNum uint64) string {
	return fmt.Sprintf("0x%x", blockNum)
}
