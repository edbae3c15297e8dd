package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestLabCreatedTopic(t *testing.T) {
	want := crypto.Keccak256Hash([]byte(LabCreatedSignature))
	if LabCreatedTopic != want {
		t.Errorf("topic mismatch: abi %s, signature %s", LabCreatedTopic.Hex(), want.Hex())
	}
}

func TestDecodeLabCreated(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	data, err := LabsABI.Events["LabCreated"].Inputs.NonIndexed().Pack("Neuro Lab", "H1NEURO", "neuroscience", token)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	lg := types.Log{
		Topics:      []common.Hash{LabCreatedTopic, common.BigToHash(big.NewInt(42)), OwnerTopic(owner)},
		Data:        data,
		BlockNumber: 1_002_000,
		TxHash:      common.HexToHash("0xfeed"),
		Index:       3,
	}

	ev, err := DecodeLabCreated(lg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.LabID.Int64() != 42 {
		t.Errorf("expected lab 42, got %s", ev.LabID)
	}
	if ev.Owner != owner || ev.H1Token != token {
		t.Errorf("unexpected addresses: owner=%s token=%s", ev.Owner.Hex(), ev.H1Token.Hex())
	}
	if ev.Name != "Neuro Lab" || ev.Symbol != "H1NEURO" || ev.Domain != "neuroscience" {
		t.Errorf("unexpected strings: %+v", ev)
	}
	if ev.BlockNumber != 1_002_000 || ev.LogIndex != 3 || ev.TxHash != lg.TxHash {
		t.Errorf("log coordinates not carried over: %+v", ev)
	}
}

func TestDecodeLabCreated_WrongEvent(t *testing.T) {
	lg := types.Log{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}}
	if _, err := DecodeLabCreated(lg); !errors.Is(err, ErrNotLabCreated) {
		t.Errorf("expected ErrNotLabCreated, got %v", err)
	}
}

func TestDecodeLabCreated_BadData(t *testing.T) {
	lg := types.Log{
		Topics: []common.Hash{LabCreatedTopic, common.BigToHash(big.NewInt(1)), {}},
		Data:   []byte{0x01, 0x02},
	}
	if _, err := DecodeLabCreated(lg); err == nil {
		t.Error("expected decode error for truncated data")
	}
}

type mockCaller struct {
	calls []ethereum.CallMsg
	out   []byte
	err   error
}

func (m *mockCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.calls = append(m.calls, msg)
	return m.out, m.err
}

func TestLabReader(t *testing.T) {
	diamond := common.HexToAddress("0x1111111111111111111111111111111111111111")
	caller := &mockCaller{out: common.BigToHash(big.NewInt(1_500_000)).Bytes()}
	r := NewLabReader(caller, diamond)

	price, err := r.LabPrice(context.Background(), big.NewInt(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Int64() != 1_500_000 {
		t.Errorf("expected 1500000, got %s", price)
	}

	msg := caller.calls[0]
	if msg.To == nil || *msg.To != diamond {
		t.Errorf("expected call to diamond, got %v", msg.To)
	}
	if want := LabsABI.Methods["getLabPrice"].ID; string(msg.Data[:4]) != string(want) {
		t.Errorf("expected getLabPrice selector %x, got %x", want, msg.Data[:4])
	}

	caller.err = errors.New("execution reverted")
	if _, err := r.LabTVL(context.Background(), big.NewInt(7)); err == nil {
		t.Error("expected error from reverted call")
	}
}
