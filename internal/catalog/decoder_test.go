package catalog

import (
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/stretchr/testify/require"
)

// buildLog encodes values (keyed by argument name) into a raw log for the named event.
func buildLog(t *testing.T, c *Catalog, name string, values map[string]any) events.RawLog {
	t.Helper()

	topics, data, err := c.Encode(name, values)
	require.NoError(t, err)

	return events.RawLog{
		Address:        common.HexToAddress("0xC0FFEE"),
		Topics:         topics,
		Data:           data,
		BlockNumber:    42,
		BlockHash:      common.HexToHash("0x42"),
		BlockTimestamp: 1700000000,
		TxHash:         common.HexToHash("0x1111"),
		TxIndex:        1,
		LogIndex:       3,
	}
}

// sampleValue produces a valid value for an ABI argument type.
func sampleValue(arg abi.Argument, i int) any {
	switch arg.Type.String() {
	case "address":
		return common.BigToAddress(big.NewInt(int64(1000 + i)))
	case "uint8":
		return uint8(i + 1)
	case "uint64":
		return uint64(1_700_000_000 + i)
	case "bool":
		return true
	default:
		return big.NewInt(int64(10_000 + i))
	}
}

func TestDecodeTransfer(t *testing.T) {
	c := MustNew()

	from := common.HexToAddress("0x1000000000000000000000000000000000000001")
	to := common.HexToAddress("0x2000000000000000000000000000000000000002")
	l := buildLog(t, c, "Transfer", map[string]any{
		"from":  from,
		"to":    to,
		"value": big.NewInt(5_000),
	})
	require.Equal(t, crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), l.Topics[0])

	ev := c.Decode(l)

	transfer, ok := ev.Payload.(events.Transfer)
	require.True(t, ok, "got %T", ev.Payload)
	require.Equal(t, from, transfer.From)
	require.Equal(t, to, transfer.To)
	require.Equal(t, 0, big.NewInt(5_000).Cmp(transfer.Value))

	require.Equal(t, uint64(42), ev.Meta.BlockNumber)
	require.Equal(t, uint(3), ev.Meta.LogIndex)
	require.Equal(t, uint64(1700000000), ev.Meta.BlockTimestamp)
	require.Equal(t, l.Address, ev.Meta.Contract)
}

func TestDecodeMixedIndexedFields(t *testing.T) {
	c := MustNew()
	owner := common.HexToAddress("0xabc")
	payer := common.HexToAddress("0xdef")

	t.Run("PositionOpened", func(t *testing.T) {
		ev := c.Decode(buildLog(t, c, "PositionOpened", map[string]any{
			"positionId": big.NewInt(7),
			"owner":      owner,
			"riskTier":   uint8(3),
			"stake":      big.NewInt(1_000_000),
		}))

		p, ok := ev.Payload.(events.PositionOpened)
		require.True(t, ok, "got %T", ev.Payload)
		require.Equal(t, int64(7), p.PositionId.Int64())
		require.Equal(t, owner, p.Owner)
		require.Equal(t, uint8(3), p.RiskTier)
		require.Equal(t, int64(1_000_000), p.Stake.Int64())
	})

	t.Run("FeeCollected", func(t *testing.T) {
		ev := c.Decode(buildLog(t, c, "FeeCollected", map[string]any{
			"payer":   payer,
			"feeType": uint8(2),
			"amount":  big.NewInt(99),
		}))

		p, ok := ev.Payload.(events.FeeCollected)
		require.True(t, ok, "got %T", ev.Payload)
		require.Equal(t, payer, p.Payer)
		require.Equal(t, uint8(2), p.FeeType)
		require.Equal(t, int64(99), p.Amount.Int64())
	})

	t.Run("BetPlaced", func(t *testing.T) {
		ev := c.Decode(buildLog(t, c, "BetPlaced", map[string]any{
			"marketId": big.NewInt(11),
			"bettor":   owner,
			"outcome":  true,
			"amount":   big.NewInt(500),
		}))

		p, ok := ev.Payload.(events.BetPlaced)
		require.True(t, ok, "got %T", ev.Payload)
		require.Equal(t, int64(11), p.MarketId.Int64())
		require.Equal(t, owner, p.Bettor)
		require.True(t, p.Outcome)
		require.Equal(t, int64(500), p.Amount.Int64())
	})

	t.Run("EpochStarted", func(t *testing.T) {
		ev := c.Decode(buildLog(t, c, "EpochStarted", map[string]any{
			"epoch":     big.NewInt(4),
			"startTime": uint64(1_700_000_123),
		}))

		p, ok := ev.Payload.(events.EpochStarted)
		require.True(t, ok, "got %T", ev.Payload)
		require.Equal(t, int64(4), p.Epoch.Int64())
		require.Equal(t, uint64(1_700_000_123), p.StartTime)
	})

	t.Run("MarketCancelled", func(t *testing.T) {
		ev := c.Decode(buildLog(t, c, "MarketCancelled", map[string]any{
			"marketId": big.NewInt(12),
		}))

		p, ok := ev.Payload.(events.MarketCancelled)
		require.True(t, ok, "got %T", ev.Payload)
		require.Equal(t, int64(12), p.MarketId.Int64())
	})
}

func TestDecodeEveryEntry(t *testing.T) {
	c := MustNew()

	for _, e := range c.Entries() {
		t.Run(e.Name, func(t *testing.T) {
			values := make(map[string]any)
			for i, arg := range e.Event().Inputs {
				values[arg.Name] = sampleValue(arg, i)
			}

			ev := c.Decode(buildLog(t, c, e.Name, values))
			require.False(t, ev.IsAnomaly(), "decoded %+v", ev.Payload)
			require.Equal(t, e.Name, ev.Name())
			require.Equal(t, e.Family, ev.Family())
		})
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	c := MustNew()
	contract := common.HexToAddress("0xC0FFEE")

	t.Run("no topics", func(t *testing.T) {
		ev := c.Decode(events.RawLog{Address: contract, Data: []byte{1}})

		u, ok := ev.Payload.(events.Unrecognized)
		require.True(t, ok)
		require.Equal(t, contract, u.Contract)
		require.Nil(t, u.Topic0)
	})

	t.Run("unknown topic0", func(t *testing.T) {
		topic := crypto.Keccak256Hash([]byte("Unknown(uint256)"))
		ev := c.Decode(events.RawLog{Address: contract, Topics: []common.Hash{topic}})

		u, ok := ev.Payload.(events.Unrecognized)
		require.True(t, ok)
		require.NotNil(t, u.Topic0)
		require.Equal(t, topic, *u.Topic0)
		require.True(t, ev.IsAnomaly())
	})
}

func TestDecodeMalformed(t *testing.T) {
	c := MustNew()

	valid := func(t *testing.T) events.RawLog {
		return buildLog(t, c, "Transfer", map[string]any{
			"from":  common.HexToAddress("0x1"),
			"to":    common.HexToAddress("0x2"),
			"value": big.NewInt(1),
		})
	}

	tests := []struct {
		name   string
		mutate func(l *events.RawLog)
	}{
		{"missing indexed topic", func(l *events.RawLog) { l.Topics = l.Topics[:2] }},
		{"extra topic", func(l *events.RawLog) { l.Topics = append(l.Topics, common.Hash{}) }},
		{"short data", func(l *events.RawLog) { l.Data = l.Data[:31] }},
		{"trailing data", func(l *events.RawLog) { l.Data = append(l.Data, 0) }},
		{"empty data", func(l *events.RawLog) { l.Data = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid(t)
			tt.mutate(&l)

			ev := c.Decode(l)
			m, ok := ev.Payload.(events.Malformed)
			require.True(t, ok, "got %T", ev.Payload)
			require.Equal(t, "Transfer(address,address,uint256)", m.Signature)
			require.NotEmpty(t, m.Reason)
			require.Equal(t, uint(3), ev.Meta.LogIndex)
		})
	}

	t.Run("uint8 topic out of range", func(t *testing.T) {
		l := buildLog(t, c, "FeeCollected", map[string]any{
			"payer":   common.HexToAddress("0x1"),
			"feeType": uint8(1),
			"amount":  big.NewInt(1),
		})
		l.Topics[2] = common.BigToHash(big.NewInt(300))

		_, ok := c.Decode(l).Payload.(events.Malformed)
		require.True(t, ok)
	})

	t.Run("bool word out of range", func(t *testing.T) {
		l := buildLog(t, c, "MarketResolved", map[string]any{
			"marketId": big.NewInt(1),
			"outcome":  true,
		})
		l.Data[31] = 2

		_, ok := c.Decode(l).Payload.(events.Malformed)
		require.True(t, ok)
	})
}

func TestDecodeIsTotal(t *testing.T) {
	c := MustNew()
	rng := rand.New(rand.NewPCG(1, 2))
	entries := c.Entries()

	randomHash := func() common.Hash {
		var h common.Hash
		for i := range h {
			h[i] = byte(rng.IntN(256))
		}
		return h
	}

	for i := 0; i < 2000; i++ {
		l := events.RawLog{LogIndex: uint(i)}

		topicCount := rng.IntN(5)
		for j := 0; j < topicCount; j++ {
			l.Topics = append(l.Topics, randomHash())
		}
		if topicCount > 0 && rng.IntN(2) == 0 {
			l.Topics[0] = entries[rng.IntN(len(entries))].Topic
		}

		l.Data = make([]byte, rng.IntN(5)*32+rng.IntN(2))
		for j := range l.Data {
			l.Data[j] = byte(rng.IntN(256))
		}

		require.NotPanics(t, func() {
			ev := c.Decode(l)
			require.NotNil(t, ev.Payload)
			require.Equal(t, uint(i), ev.Meta.LogIndex)
		})
	}
}
