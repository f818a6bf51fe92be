package rpctest

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/internal/catalog"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/stretchr/testify/require"
)

func TestChain_BlocksLink(t *testing.T) {
	c := NewChain()
	c.AddBlocks(10, nil)

	require.Equal(t, uint64(10), c.Head())
	for n := uint64(1); n <= 10; n++ {
		require.Equal(t, c.Block(n-1).Hash, c.Block(n).ParentHash)
		require.Equal(t, uint64(GenesisTime+n*BlockTime), c.Block(n).Timestamp)
	}
}

func TestChain_Deterministic(t *testing.T) {
	a, b := NewChain(), NewChain()
	a.AddBlocks(5, nil)
	b.AddBlocks(5, nil)

	require.Equal(t, a.Block(5), b.Block(5))
}

func TestChain_Reorg(t *testing.T) {
	c := NewChain()
	c.AddBlocks(20, nil)
	before := c.Block(15)

	c.Reorg(10, nil)

	require.Equal(t, uint64(20), c.Head())
	require.Equal(t, before.Number, c.Block(15).Number)
	require.NotEqual(t, before.Hash, c.Block(15).Hash)
	require.Equal(t, c.Block(9).Hash, c.Block(10).ParentHash)
}

func TestChain_Logs(t *testing.T) {
	ctx := context.Background()
	cat := catalog.MustNew()
	token := common.HexToAddress("0x1000")
	other := common.HexToAddress("0x2000")

	c := NewChain()
	c.AddBlocks(4, func(n uint64) []Emit {
		if n%2 == 1 {
			return nil
		}
		return []Emit{
			Event(cat, token, "Transfer", map[string]any{
				"from":  common.HexToAddress("0xa"),
				"to":    common.HexToAddress("0xb"),
				"value": new(big.Int).SetUint64(n),
			}),
			{Address: other},
		}
	})

	logs, err := c.Logs(ctx, []common.Address{token}, 1, 4)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, uint64(2), logs[0].BlockNumber)
	require.Equal(t, c.Block(2).Hash, logs[0].BlockHash)
	require.Zero(t, logs[0].BlockTimestamp)

	ev := cat.Decode(logs[1])
	transfer, ok := ev.Payload.(events.Transfer)
	require.True(t, ok)
	require.Equal(t, int64(4), transfer.Value.Int64())

	all, err := c.Logs(ctx, nil, 0, 4)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, uint(1), all[1].LogIndex)

	_, err = c.Logs(ctx, nil, 3, 5)
	require.Error(t, err)
}

func TestChain_Headers(t *testing.T) {
	ctx := context.Background()
	c := NewChain()
	c.AddBlocks(3, nil)

	refs, err := c.BlockHeaders(ctx, []uint64{3, 1})
	require.NoError(t, err)
	require.Equal(t, c.Block(3), refs[0])
	require.Equal(t, c.Block(1), refs[1])

	_, err = c.BlockHeader(ctx, 4)
	require.ErrorIs(t, err, ethereum.NotFound)

	_, err = c.BlockHeaders(ctx, []uint64{2, 4})
	require.ErrorIs(t, err, ethereum.NotFound)
}

func TestChain_FailNextAndHooks(t *testing.T) {
	ctx := context.Background()
	c := NewChain()
	c.AddBlocks(3, nil)

	boom := errors.New("boom")
	c.FailNext(MethodCurrentHead, boom)

	_, err := c.CurrentHead(ctx)
	require.ErrorIs(t, err, boom)

	head, err := c.CurrentHead(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), head)
	require.Equal(t, 2, c.Calls(MethodCurrentHead))

	c.OnCall(func(method string) {
		if method == MethodCurrentHead {
			c.AddBlocks(1, nil)
		}
	})

	head, err = c.CurrentHead(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(4), head)
}
