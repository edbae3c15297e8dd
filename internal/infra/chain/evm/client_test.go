package evm

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/h1labs/labs/internal/infra/rpc/provider"
)

// MockProvider implements provider.Provider for testing
type MockProvider struct {
	CallFunc func(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

func (m *MockProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if m.CallFunc != nil {
		return m.CallFunc(ctx, method, params)
	}
	return nil, nil
}

func (m *MockProvider) GetName() string                  { return "mock" }
func (m *MockProvider) GetHealth() provider.HealthStatus { return provider.HealthStatus{Available: true} }
func (m *MockProvider) Close() error                     { return nil }

func TestClient_BlockNumber(t *testing.T) {
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
			if method == "eth_blockNumber" {
				return json.RawMessage(`"0x12d687"`), nil // 1234567 in hex
			}
			return nil, nil
		},
	}

	height, err := NewClient(mock).BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 1234567 {
		t.Errorf("expected height 1234567, got %d", height)
	}
}

func TestClient_FilterLogs(t *testing.T) {
	diamond := common.HexToAddress("0x1111111111111111111111111111111111111111")
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	want := types.Log{
		Address:     diamond,
		Topics:      []common.Hash{LabCreatedTopic, common.BigToHash(big.NewInt(7)), OwnerTopic(owner)},
		Data:        []byte{},
		BlockNumber: 1_001_300,
		TxHash:      common.HexToHash("0xabc"),
		Index:       2,
	}

	var gotQuery map[string]any
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
			if method != "eth_getLogs" {
				t.Fatalf("unexpected method %s", method)
			}
			raw, _ := json.Marshal(params[0])
			_ = json.Unmarshal(raw, &gotQuery)
			return json.Marshal([]types.Log{want})
		},
	}

	logs, err := NewClient(mock).FilterLogs(context.Background(), ethereum.FilterQuery{
		FromBlock: big.NewInt(1_000_501),
		ToBlock:   big.NewInt(1_001_500),
		Addresses: []common.Address{diamond},
		Topics:    [][]common.Hash{{LabCreatedTopic}, nil, {OwnerTopic(owner)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["fromBlock"] != "0xf4435" || gotQuery["toBlock"] != "0xf481c" {
		t.Errorf("unexpected block range in query: %v", gotQuery)
	}
	topics, ok := gotQuery["topics"].([]any)
	if !ok || len(topics) != 3 || topics[1] != nil {
		t.Errorf("expected wildcard at topic position 1, got %v", gotQuery["topics"])
	}

	if len(logs) != 1 || logs[0].BlockNumber != want.BlockNumber || logs[0].Index != 2 {
		t.Errorf("unexpected logs: %+v", logs)
	}
}

func TestClient_PropagatesProviderError(t *testing.T) {
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
			return nil, provider.ErrRateLimited
		},
	}

	_, err := NewClient(mock).BlockNumber(context.Background())
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Errorf("expected wrapped ErrRateLimited, got %v", err)
	}
}

func TestClient_NullResult(t *testing.T) {
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
			return json.RawMessage(`null`), nil
		},
	}

	if _, err := NewClient(mock).BlockNumber(context.Background()); err == nil {
		t.Error("expected error for null result")
	}
}

func TestClient_CallContract(t *testing.T) {
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	mock := &MockProvider{
		CallFunc: func(ctx context.Context, method string, params []any) (json.RawMessage, error) {
			if method != "eth_call" || len(params) != 2 || params[1] != "latest" {
				t.Fatalf("unexpected call %s %v", method, params)
			}
			return json.RawMessage(`"0x` + common.BigToHash(big.NewInt(42)).Hex()[2:] + `"`), nil
		},
	}

	out, err := NewClient(mock).CallContract(context.Background(), ethereum.CallMsg{To: &to, Data: []byte{1}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if new(big.Int).SetBytes(out).Int64() != 42 {
		t.Errorf("expected 42, got %x", out)
	}
}
