package store_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/internal/store"
	"github.com/goran-ethernal/ChainIngestor/internal/store/storetest"
	"github.com/goran-ethernal/ChainIngestor/pkg/events"
	"github.com/goran-ethernal/ChainIngestor/pkg/stream"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"github.com/stretchr/testify/require"
)

type balance struct {
	Amount string `json:"amount"`
}

func transferAt(block uint64, logIndex uint) events.TypedEvent {
	return events.TypedEvent{
		Meta: events.Metadata{
			BlockNumber: block,
			BlockHash:   common.BigToHash(big.NewInt(int64(block))),
			TxHash:      common.BigToHash(big.NewInt(int64(block*1000) + int64(logIndex))),
			LogIndex:    logIndex,
			Contract:    common.HexToAddress("0x01"),
		},
		Payload: events.Transfer{
			From:  common.HexToAddress("0xa"),
			To:    common.HexToAddress("0xb"),
			Value: big.NewInt(int64(block)),
		},
	}
}

func blockRef(n uint64) types.BlockRef {
	return types.BlockRef{
		Number:     n,
		Hash:       common.BigToHash(big.NewInt(int64(n))),
		ParentHash: common.BigToHash(big.NewInt(int64(n) - 1)),
		Timestamp:  n * 12,
	}
}

// applyBlock commits one batch that journals a transfer at block n, saves the
// balance entity and moves the checkpoint to n.
func applyBlock(t *testing.T, s *store.Store, n uint64, amount string) {
	t.Helper()
	ctx := context.Background()

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	defer batch.Rollback()

	ev := transferAt(n, 0)
	fresh, err := batch.RecordEvent(ctx, ev)
	require.NoError(t, err)
	require.True(t, fresh)

	require.NoError(t, batch.Scope(ev).Save(ctx, "balance", "0xb", balance{Amount: amount}))
	require.NoError(t, batch.Enqueue(ctx, "test.token", ev.Key().String(), n, []byte(`{}`)))
	require.NoError(t, batch.PutBlocks(ctx, []types.BlockRef{blockRef(n)}))
	require.NoError(t, batch.SetCheckpoint(ctx, types.Checkpoint{Block: n, Hash: blockRef(n).Hash, Exists: true}))
	require.NoError(t, batch.Commit())
}

func TestBatch_CommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	cp, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	require.False(t, cp.Exists)

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	_, err = batch.RecordEvent(ctx, transferAt(5, 0))
	require.NoError(t, err)
	require.NoError(t, batch.SetCheckpoint(ctx, types.Checkpoint{Block: 5, Exists: true}))

	inTx, err := batch.Checkpoint(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), inTx.Block)

	batch.Rollback()
	batch.Rollback()

	cp, err = s.Checkpoint(ctx)
	require.NoError(t, err)
	require.False(t, cp.Exists)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	require.Zero(t, st.Events)

	applyBlock(t, s, 5, "1")

	cp, err = s.Checkpoint(ctx)
	require.NoError(t, err)
	require.Equal(t, types.Checkpoint{Block: 5, Hash: blockRef(5).Hash, Exists: true}, cp)
}

func TestBatch_CommitTwiceFails(t *testing.T) {
	s, _ := storetest.New(t, nil)

	batch, err := s.BeginBatch(context.Background())
	require.NoError(t, err)
	require.NoError(t, batch.Commit())
	require.Error(t, batch.Commit())
	batch.Rollback()
}

func TestBatch_RecordEventIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	applyBlock(t, s, 7, "1")

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	defer batch.Rollback()

	fresh, err := batch.RecordEvent(ctx, transferAt(7, 0))
	require.NoError(t, err)
	require.False(t, fresh)

	fresh, err = batch.RecordEvent(ctx, transferAt(7, 1))
	require.NoError(t, err)
	require.True(t, fresh)
}

func TestBatch_JournalStoresEnvelope(t *testing.T) {
	s, sqlDB := storetest.New(t, nil)

	applyBlock(t, s, 3, "1")

	var family, name, payload string
	require.NoError(t, sqlDB.QueryRow(`SELECT family, name, payload FROM events`).Scan(&family, &name, &payload))
	require.Equal(t, "token", family)
	require.Equal(t, "Transfer", name)

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &env))
	require.Equal(t, "Transfer", env["event"])
	require.Equal(t, "token", env["family"])
}

func TestJournal_RecentAnomalies(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	applyBlock(t, s, 4, "1")

	unknown := common.HexToHash("0xdeadbeef")
	contract := common.HexToAddress("0xc0ffee")
	anomalies := []events.TypedEvent{
		{
			Meta:    events.Metadata{BlockNumber: 5, BlockHash: blockRef(5).Hash, TxHash: common.HexToHash("0x51"), Contract: contract},
			Payload: events.Unrecognized{Contract: contract, Topic0: &unknown},
		},
		{
			Meta:    events.Metadata{BlockNumber: 6, BlockHash: blockRef(6).Hash, TxHash: common.HexToHash("0x61"), LogIndex: 2, TxIndex: 1, Contract: contract},
			Payload: events.Malformed{Signature: "Transfer(address,address,uint256)", Reason: "short data"},
		},
	}

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	for _, ev := range anomalies {
		fresh, err := batch.RecordEvent(ctx, ev)
		require.NoError(t, err)
		require.True(t, fresh)
	}
	require.NoError(t, batch.Commit())

	got, err := s.RecentAnomalies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "Malformed", got[0].Name)
	require.Equal(t, uint64(6), got[0].BlockNumber)
	require.Equal(t, uint(2), got[0].LogIndex)
	require.Equal(t, uint(1), got[0].TxIndex)
	require.Equal(t, contract, got[0].Contract)
	require.Equal(t, blockRef(6).Hash, got[0].BlockHash)
	require.Equal(t, common.HexToHash("0x61"), got[0].TxHash)

	require.Equal(t, "Unrecognized", got[1].Name)
	require.Equal(t, string(events.FamilyAnomaly), got[1].Family)
	require.Equal(t, contract, got[1].Contract)

	limited, err := s.RecentAnomalies(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestScope_LoadSaveAndTouched(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	defer batch.Rollback()

	scope := batch.Scope(transferAt(10, 2))

	var got balance
	found, err := scope.Load(ctx, "balance", "0xb", &got)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, scope.Save(ctx, "balance", "0xb", balance{Amount: "10"}))
	require.NoError(t, scope.Save(ctx, "balance", "0xa", balance{Amount: "3"}))
	require.NoError(t, scope.Save(ctx, "balance", "0xb", balance{Amount: "12"}))

	found, err = scope.Load(ctx, "balance", "0xb", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "12", got.Amount)

	require.Equal(t, []types.EntityRef{
		{Kind: "balance", Key: "0xb"},
		{Kind: "balance", Key: "0xa"},
	}, batch.Touched())

	// not visible outside the batch until commit
	found, err = s.LoadEntity(ctx, "balance", "0xb", &got)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, batch.Commit())

	found, err = s.LoadEntity(ctx, "balance", "0xb", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "12", got.Amount)
}

func TestRecentBlocks(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.PutBlocks(ctx, []types.BlockRef{blockRef(1), blockRef(2), blockRef(3), blockRef(4)}))
	require.NoError(t, batch.PruneHistory(ctx, 2))
	require.NoError(t, batch.Commit())

	blocks, err := s.RecentBlocks(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []types.BlockRef{blockRef(3), blockRef(4)}, blocks)

	blocks, err = s.RecentBlocks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	require.Equal(t, uint64(2), blocks[0].Number)

	got, ok, err := s.StoredBlock(ctx, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, blockRef(4), got)

	_, ok, err = s.StoredBlock(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRollback_RevertsEverythingAboveTheAncestor(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	s, sqlDB := storetest.New(t, clk)

	for n := uint64(45); n <= 52; n++ {
		applyBlock(t, s, n, big.NewInt(int64(n)).String())
	}

	// a second entity created only on the abandoned branch
	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, batch.Scope(transferAt(51, 1)).Save(ctx, "balance", "0xnew", balance{Amount: "5"}))
	require.NoError(t, batch.Commit())

	ancestor := blockRef(49).Hash
	res, err := s.Rollback(ctx, store.RollbackRequest{
		FirstInvalid: 50,
		AncestorHash: ancestor,
		Depth:        3,
		ReorgTopic:   "test.reorg",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	require.Equal(t, uint64(52), res.PreviousCheckpoint.Block)
	require.Equal(t, types.Checkpoint{Block: 49, Hash: ancestor, Exists: true}, res.Checkpoint)
	require.Equal(t, int64(3), res.EventsRemoved)
	require.Equal(t, int64(3), res.OutboxDropped)
	require.Equal(t, 1, res.EntitiesReverted)
	require.Equal(t, 1, res.EntitiesDeleted)
	require.ElementsMatch(t, []types.EntityRef{
		{Kind: "balance", Key: "0xb"},
		{Kind: "balance", Key: "0xnew"},
	}, res.Touched)

	cp, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	require.Equal(t, res.Checkpoint, cp)

	var got balance
	found, err := s.LoadEntity(ctx, "balance", "0xb", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "49", got.Amount)

	found, err = s.LoadEntity(ctx, "balance", "0xnew", &got)
	require.NoError(t, err)
	require.False(t, found)

	var maxBlock uint64
	require.NoError(t, sqlDB.QueryRow(`SELECT MAX(block_number) FROM events`).Scan(&maxBlock))
	require.Equal(t, uint64(49), maxBlock)
	require.NoError(t, sqlDB.QueryRow(`SELECT MAX(block_number) FROM block_history`).Scan(&maxBlock))
	require.Equal(t, uint64(49), maxBlock)
	require.NoError(t, sqlDB.QueryRow(`SELECT MAX(block_number) FROM entity_versions`).Scan(&maxBlock))
	require.Equal(t, uint64(49), maxBlock)

	// the reorg notice is queued after the surviving messages
	pending, err := s.PendingOutbox(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 6)
	last := pending[len(pending)-1]
	require.Equal(t, "test.reorg", last.Topic)
	require.Equal(t, res.ID, last.Key)

	var notice stream.ReorgNotice
	require.NoError(t, json.Unmarshal(last.Payload, &notice))
	require.Equal(t, stream.ReorgNotice{
		FirstInvalid:   50,
		CommonAncestor: 49,
		AncestorHash:   ancestor,
		Depth:          3,
		Reason:         store.ReasonReorg,
	}, notice)

	reorgs, err := s.Reorgs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reorgs, 1)
	require.Equal(t, res.ID, reorgs[0].ID)
	require.Equal(t, uint64(50), reorgs[0].FirstInvalid)
	require.Equal(t, ancestor, reorgs[0].AncestorHash)
	require.NotNil(t, reorgs[0].PreviousCheckpoint)
	require.Equal(t, uint64(52), *reorgs[0].PreviousCheckpoint)
	require.Equal(t, clk.Now().Unix(), reorgs[0].Time().Unix())
}

func TestRollback_ToStartBlockClearsCheckpoint(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	applyBlock(t, s, 100, "1")
	applyBlock(t, s, 101, "2")

	res, err := s.Rollback(ctx, store.RollbackRequest{
		FirstInvalid: 100,
		StartBlock:   100,
		Reason:       store.ReasonOperator,
	})
	require.NoError(t, err)
	require.False(t, res.Checkpoint.Exists)
	require.Equal(t, 1, res.EntitiesDeleted)

	cp, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	require.False(t, cp.Exists)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	require.Zero(t, st.Events)
	require.Zero(t, st.Entities)
	require.Zero(t, st.OutboxBacklog, "no reorg topic configured")
	require.Equal(t, int64(1), st.Reorgs)

	reorgs, err := s.Reorgs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, store.ReasonOperator, reorgs[0].Reason)
}

func TestOutbox_PendingAndAck(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	for n := uint64(1); n <= 3; n++ {
		applyBlock(t, s, n, "1")
	}

	pending, err := s.PendingOutbox(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Less(t, pending[0].ID, pending[1].ID)
	require.Equal(t, uint64(1), pending[0].BlockNumber)
	require.Equal(t, transferAt(1, 0).Key().String(), pending[0].Key)

	require.NoError(t, s.AckOutbox(ctx, []int64{pending[0].ID, pending[1].ID}))
	require.NoError(t, s.AckOutbox(ctx, nil))

	backlog, err := s.OutboxBacklog(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, backlog)

	pending, err = s.PendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, uint64(3), pending[0].BlockNumber)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := storetest.New(t, nil)

	st, err := s.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, store.Status{}, st)

	applyBlock(t, s, 8, "1")
	applyBlock(t, s, 9, "2")

	batch, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	_, err = batch.RecordEvent(ctx, events.TypedEvent{
		Meta:    events.Metadata{BlockNumber: 9, LogIndex: 4},
		Payload: events.Unrecognized{Contract: common.HexToAddress("0x01")},
	})
	require.NoError(t, err)
	require.NoError(t, batch.Commit())

	st, err = s.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(9), st.Checkpoint.Block)
	require.Equal(t, 2, st.HistoryBlocks)
	require.Equal(t, uint64(8), st.OldestBlock)
	require.Equal(t, uint64(9), st.NewestBlock)
	require.Equal(t, int64(3), st.Events)
	require.Equal(t, int64(1), st.Anomalies)
	require.Equal(t, int64(1), st.Entities)
	require.Equal(t, 2, st.OutboxBacklog)
}
