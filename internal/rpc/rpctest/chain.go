// Package rpctest provides a deterministic in-memory chain implementing rpc.ChainClient.
// Blocks can be replaced from any height to simulate reorgs, and calls can be made to fail.
package rpctest

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goran-ethernal/ChainIngestor/internal/catalog"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/rpc"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
)

// Method names accepted by FailNext, Calls and OnCall.
const (
	MethodCurrentHead  = "CurrentHead"
	MethodLogs         = "Logs"
	MethodBlockHeader  = "BlockHeader"
	MethodBlockHeaders = "BlockHeaders"
)

// GenesisTime is the timestamp of block 0. Each block adds BlockTime seconds.
const (
	GenesisTime = 1_700_000_000
	BlockTime   = 12
)

var _ rpc.ChainClient = (*Chain)(nil)

// Emit is one log a block generator asks the chain to produce.
type Emit struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// LogGen returns the logs emitted in block number. A nil LogGen emits nothing.
type LogGen func(number uint64) []Emit

// Chain is an in-memory canonical chain starting at genesis block 0.
type Chain struct {
	mu       sync.Mutex
	blocks   []types.BlockRef
	logs     map[uint64][]events.RawLog
	salt     uint64
	failures map[string][]error
	calls    map[string]int
	onCall   func(method string)
}

// NewChain creates a chain holding only the genesis block.
func NewChain() *Chain {
	c := &Chain{
		logs:     make(map[uint64][]events.RawLog),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
	c.blocks = append(c.blocks, c.newBlock(0, common.Hash{}))
	return c
}

// Head returns the number of the newest block.
func (c *Chain) Head() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.blocks) - 1)
}

// Block returns the canonical block at number.
func (c *Chain) Block(number uint64) types.BlockRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[number]
}

// AddBlocks appends n blocks on top of the head.
func (c *Chain) AddBlocks(n int, gen LogGen) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for range n {
		parent := c.blocks[len(c.blocks)-1]
		b := c.newBlock(parent.Number+1, parent.Hash)
		c.blocks = append(c.blocks, b)
		c.logs[b.Number] = c.buildLogs(b, gen)
	}
}

// Reorg replaces every block from number `from` upwards with a new branch of
// the same length, so the head number is unchanged.
func (c *Chain) Reorg(from uint64, gen LogGen) {
	c.mu.Lock()
	length := len(c.blocks) - int(from)
	c.truncate(from)
	c.mu.Unlock()

	c.AddBlocks(length, gen)
}

// Fork drops every block from number `from` upwards. New blocks added
// afterwards form a different branch.
func (c *Chain) Fork(from uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.truncate(from)
}

func (c *Chain) truncate(from uint64) {
	if from == 0 {
		from = 1
	}
	for n := from; n < uint64(len(c.blocks)); n++ {
		delete(c.logs, n)
	}
	c.blocks = c.blocks[:from]
	c.salt++
}

// FailNext makes the next call of method return err. Calls queue up.
func (c *Chain) FailNext(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method] = append(c.failures[method], err)
}

// Calls returns how many times method was called.
func (c *Chain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// OnCall registers fn to run at the start of every call, before the chain is read.
// fn may modify the chain.
func (c *Chain) OnCall(fn func(method string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCall = fn
}

func (c *Chain) enter(method string) error {
	c.mu.Lock()
	c.calls[method]++
	hook := c.onCall
	c.mu.Unlock()

	if hook != nil {
		hook(method)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if queued := c.failures[method]; len(queued) > 0 {
		c.failures[method] = queued[1:]
		return queued[0]
	}
	return nil
}

func (c *Chain) Close() {}

func (c *Chain) CurrentHead(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := c.enter(MethodCurrentHead); err != nil {
		return 0, err
	}
	return c.Head(), nil
}

func (c *Chain) Logs(ctx context.Context, addresses []common.Address, from, to uint64) ([]events.RawLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.enter(MethodLogs); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if from > to {
		return nil, fmt.Errorf("invalid block range %d-%d", from, to)
	}
	if to >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("block range extends beyond current head %d", len(c.blocks)-1)
	}

	var out []events.RawLog
	for n := from; n <= to; n++ {
		for _, l := range c.logs[n] {
			if len(addresses) > 0 && !slices.Contains(addresses, l.Address) {
				continue
			}
			l.BlockTimestamp = 0
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *Chain) BlockHeader(ctx context.Context, number uint64) (types.BlockRef, error) {
	if err := ctx.Err(); err != nil {
		return types.BlockRef{}, err
	}
	if err := c.enter(MethodBlockHeader); err != nil {
		return types.BlockRef{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if number >= uint64(len(c.blocks)) {
		return types.BlockRef{}, ethereum.NotFound
	}
	return c.blocks[number], nil
}

func (c *Chain) BlockHeaders(ctx context.Context, numbers []uint64) ([]types.BlockRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.enter(MethodBlockHeaders); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.BlockRef, len(numbers))
	for i, n := range numbers {
		if n >= uint64(len(c.blocks)) {
			return nil, fmt.Errorf("block %d: %w", n, ethereum.NotFound)
		}
		out[i] = c.blocks[n]
	}
	return out, nil
}

func (c *Chain) newBlock(number uint64, parent common.Hash) types.BlockRef {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], number)
	binary.BigEndian.PutUint64(buf[8:], c.salt)

	return types.BlockRef{
		Number:     number,
		Hash:       crypto.Keccak256Hash(buf[:], parent.Bytes()),
		ParentHash: parent,
		Timestamp:  GenesisTime + number*BlockTime,
	}
}

func (c *Chain) buildLogs(b types.BlockRef, gen LogGen) []events.RawLog {
	if gen == nil {
		return nil
	}

	emits := gen(b.Number)
	out := make([]events.RawLog, 0, len(emits))
	for i, e := range emits {
		var idx [8]byte
		binary.BigEndian.PutUint64(idx[:], uint64(i))

		out = append(out, events.RawLog{
			Address:        e.Address,
			Topics:         e.Topics,
			Data:           e.Data,
			BlockNumber:    b.Number,
			BlockHash:      b.Hash,
			BlockTimestamp: b.Timestamp,
			TxHash:         crypto.Keccak256Hash(b.Hash.Bytes(), idx[:]),
			TxIndex:        uint(i),
			LogIndex:       uint(i),
		})
	}
	return out
}

// Event encodes a catalog event into an Emit. It panics on encoding errors,
// which are always bugs in the calling test.
func Event(cat *catalog.Catalog, address common.Address, name string, values map[string]any) Emit {
	topics, data, err := cat.Encode(name, values)
	if err != nil {
		panic(fmt.Sprintf("rpctest: %v", err))
	}
	return Emit{Address: address, Topics: topics, Data: data}
}
