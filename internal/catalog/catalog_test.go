package catalog

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 28)

	perFamily := make(map[events.Family]int)
	for _, e := range entries {
		perFamily[e.Family]++
		require.Equal(t, crypto.Keccak256Hash([]byte(e.Signature)), e.Topic, e.Name)

		got, ok := c.Lookup(e.Topic)
		require.True(t, ok)
		require.Equal(t, e.Name, got.Name)
	}

	require.Equal(t, map[events.Family]int{
		events.FamilyToken:      5,
		events.FamilyPosition:   5,
		events.FamilyLifecycle:  6,
		events.FamilySettlement: 4,
		events.FamilyMarket:     5,
		events.FamilyFee:        3,
	}, perFamily)
}

func TestEntriesSorted(t *testing.T) {
	entries := MustNew().Entries()

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.Family == cur.Family {
			require.Less(t, prev.Name, cur.Name)
		} else {
			require.Less(t, string(prev.Family), string(cur.Family))
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	_, ok := MustNew().Lookup(common.HexToHash("0xdeadbeef"))
	require.False(t, ok)
}

func TestKnownSignatures(t *testing.T) {
	c := MustNew()

	tests := []struct {
		signature string
		name      string
	}{
		{"Transfer(address,address,uint256)", "Transfer"},
		{"PositionOpened(uint256,address,uint8,uint256)", "PositionOpened"},
		{"EpochStarted(uint256,uint64)", "EpochStarted"},
		{"BetPlaced(uint256,address,bool,uint256)", "BetPlaced"},
		{"FeeCollected(address,uint8,uint256)", "FeeCollected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := c.Lookup(crypto.Keccak256Hash([]byte(tt.signature)))
			require.True(t, ok)
			require.Equal(t, tt.name, e.Name)
			require.Equal(t, tt.signature, e.Signature)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	c := MustNew()

	_, _, err := c.Encode("NoSuchEvent", nil)
	require.ErrorContains(t, err, "unknown event")

	_, _, err = c.Encode("Transfer", map[string]any{"from": common.Address{}})
	require.ErrorContains(t, err, "missing value")
}
