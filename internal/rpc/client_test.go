package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	internalcommon "github.com/goran-ethernal/ChainIngestor/internal/common"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
	"github.com/goran-ethernal/ChainIngestor/pkg/types"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "http://node.test:8545"

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

// fakeNode answers JSON-RPC requests, single or batched, through httpmock.
type fakeNode struct {
	mu      sync.Mutex
	calls   map[string]int
	batches int
	handle  func(method string, params []json.RawMessage) (any, *rpcError)
}

func newFakeNode(t *testing.T, handle func(method string, params []json.RawMessage) (any, *rpcError)) *fakeNode {
	t.Helper()

	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	n := &fakeNode{calls: make(map[string]int), handle: handle}
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, n.respond)
	return n
}

func (n *fakeNode) respond(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []rpcRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		n.batches++

		resps := make([]rpcResponse, len(reqs))
		for i, r := range reqs {
			resps[i] = n.answer(r)
		}
		return httpmock.NewJsonResponse(http.StatusOK, resps)
	}

	var r rpcRequest
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return httpmock.NewJsonResponse(http.StatusOK, n.answer(r))
}

func (n *fakeNode) answer(r rpcRequest) rpcResponse {
	n.calls[r.Method]++
	result, rpcErr := n.handle(r.Method, r.Params)
	return rpcResponse{JSONRPC: "2.0", ID: r.ID, Result: result, Error: rpcErr}
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func testHeader(n uint64) *gethtypes.Header {
	return &gethtypes.Header{
		ParentHash: common.BigToHash(new(big.Int).SetUint64(n + 1000)),
		Number:     new(big.Int).SetUint64(n),
		Difficulty: big.NewInt(0),
		Time:       1_700_000_000 + n*12,
		Extra:      []byte{},
	}
}

func blockParam(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func testClient(t *testing.T, finality types.BlockFinality) *Client {
	t.Helper()

	cfg := config.ChainConfig{
		RPCURL:   testEndpoint,
		Finality: string(finality),
		Retry: &config.RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    internalcommon.NewDuration(time.Millisecond),
			MaxBackoff:        internalcommon.NewDuration(2 * time.Millisecond),
			BackoffMultiplier: 2,
		},
	}
	cfg.ApplyDefaults()

	c, err := NewClient(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestToBlockNumArg(t *testing.T) {
	tests := []struct {
		blockNum uint64
		want     string
	}{
		{0, "0x0"},
		{1, "0x1"},
		{100, "0x64"},
		{18000000, "0x112a880"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, toBlockNumArg(tt.blockNum))
	}
}

func TestClient_CurrentHead(t *testing.T) {
	tests := []struct {
		finality types.BlockFinality
		tag      string
	}{
		{types.FinalityLatest, "latest"},
		{types.FinalitySafe, "safe"},
		{types.FinalityFinalized, "finalized"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			var gotTag string
			newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
				gotTag = blockParam(t, params[0])
				return testHeader(1234), nil
			})

			head, err := testClient(t, tt.finality).CurrentHead(context.Background())
			require.NoError(t, err)
			require.Equal(t, uint64(1234), head)
			require.Equal(t, tt.tag, gotTag)
		})
	}
}

func TestClient_BlockHeader(t *testing.T) {
	newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		if blockParam(t, params[0]) == "0x7" {
			return testHeader(7), nil
		}
		return nil, nil
	})
	c := testClient(t, types.FinalityLatest)

	ref, err := c.BlockHeader(context.Background(), 7)
	require.NoError(t, err)

	h := testHeader(7)
	require.Equal(t, types.BlockRef{Number: 7, Hash: h.Hash(), ParentHash: h.ParentHash, Timestamp: h.Time}, ref)

	_, err = c.BlockHeader(context.Background(), 8)
	require.ErrorIs(t, err, ethereum.NotFound)
}

func TestClient_BlockHeadersBatches(t *testing.T) {
	node := newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		n, err := internalcommon.ParseUint64orHex(ptr(blockParam(t, params[0])))
		require.NoError(t, err)
		return testHeader(n), nil
	})
	c := testClient(t, types.FinalityLatest)

	numbers := make([]uint64, 250)
	for i := range numbers {
		numbers[i] = uint64(1000 - i)
	}

	refs, err := c.BlockHeaders(context.Background(), numbers)
	require.NoError(t, err)
	require.Len(t, refs, len(numbers))
	for i, ref := range refs {
		require.Equal(t, numbers[i], ref.Number)
		require.Equal(t, testHeader(numbers[i]).Hash(), ref.Hash)
	}

	require.Equal(t, 3, node.batches)
	require.Equal(t, 250, node.count("eth_getBlockByNumber"))
}

func TestClient_BlockHeadersMissingBlock(t *testing.T) {
	newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		if blockParam(t, params[0]) == "0x3" {
			return nil, nil
		}
		return testHeader(1), nil
	})

	_, err := testClient(t, types.FinalityLatest).BlockHeaders(context.Background(), []uint64{1, 2, 3})
	require.ErrorIs(t, err, ethereum.NotFound)
}

func TestClient_Logs(t *testing.T) {
	contract := common.HexToAddress("0xC0FFEE")
	logs := []gethtypes.Log{
		{
			Address:     contract,
			Topics:      []common.Hash{common.HexToHash("0x01")},
			Data:        []byte{0xaa},
			BlockNumber: 5,
			BlockHash:   common.HexToHash("0x05"),
			TxHash:      common.HexToHash("0xf1"),
			TxIndex:     2,
			Index:       9,
		},
		{
			Address:     contract,
			Topics:      []common.Hash{common.HexToHash("0x01")},
			Data:        []byte{},
			BlockNumber: 6,
			BlockHash:   common.HexToHash("0x06"),
			TxHash:      common.HexToHash("0xf2"),
			Removed:     true,
		},
	}

	var filter map[string]any
	newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		require.Equal(t, "eth_getLogs", method)
		require.NoError(t, json.Unmarshal(params[0], &filter))
		return logs, nil
	})

	got, err := testClient(t, types.FinalityLatest).Logs(context.Background(), []common.Address{contract}, 5, 10)
	require.NoError(t, err)
	require.Equal(t, "0x5", filter["fromBlock"])
	require.Equal(t, "0xa", filter["toBlock"])

	require.Len(t, got, 1, "removed logs are dropped")
	require.Equal(t, contract, got[0].Address)
	require.Equal(t, uint64(5), got[0].BlockNumber)
	require.Equal(t, common.HexToHash("0x05"), got[0].BlockHash)
	require.Equal(t, uint(9), got[0].LogIndex)
	require.Equal(t, uint(2), got[0].TxIndex)
	require.Equal(t, []byte{0xaa}, got[0].Data)
	require.Zero(t, got[0].BlockTimestamp)
}

func TestClient_LogsSplitsLargeRanges(t *testing.T) {
	var ranges []string
	newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		var filter struct {
			From string `json:"fromBlock"`
			To   string `json:"toBlock"`
		}
		require.NoError(t, json.Unmarshal(params[0], &filter))
		ranges = append(ranges, filter.From+"-"+filter.To)

		if filter.From == "0x0" && filter.To == "0x63" {
			return nil, &rpcError{
				Code:    -32005,
				Message: "query returned more than 10000 results",
				Data:    "Try with this block range [0x0, 0x27].",
			}
		}
		return []gethtypes.Log{}, nil
	})

	got, err := testClient(t, types.FinalityLatest).Logs(context.Background(), nil, 0, 99)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, []string{"0x0-0x63", "0x0-0x27", "0x28-0x63"}, ranges)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	node := newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		attempts++
		if attempts < 3 {
			return nil, &rpcError{Code: -32000, Message: "503 service unavailable"}
		}
		return testHeader(9), nil
	})

	head, err := testClient(t, types.FinalityLatest).CurrentHead(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(9), head)
	require.Equal(t, 3, node.count("eth_getBlockByNumber"))
}

func TestClient_DoesNotRetryPermanentErrors(t *testing.T) {
	node := newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -32602, Message: "invalid argument 0"}
	})

	_, err := testClient(t, types.FinalityLatest).BlockHeader(context.Background(), 1)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "non-retryable"))
	require.Equal(t, 1, node.count("eth_getBlockByNumber"))
}

func TestClient_ContextCancelled(t *testing.T) {
	newFakeNode(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return testHeader(1), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(t, types.FinalityLatest).CurrentHead(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}

func ptr[T any](v T) *T { return &v }
