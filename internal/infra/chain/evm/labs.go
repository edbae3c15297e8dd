package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/h1labs/labs/internal/core/domain"
)

// labsABI is the slice of the labs diamond ABI this service touches.
const labsABI = `[
  {"type":"event","name":"LabCreated","anonymous":false,"inputs":[
    {"name":"labId","type":"uint256","indexed":true},
    {"name":"owner","type":"address","indexed":true},
    {"name":"name","type":"string","indexed":false},
    {"name":"symbol","type":"string","indexed":false},
    {"name":"domain","type":"string","indexed":false},
    {"name":"h1Token","type":"address","indexed":false}
  ]},
  {"type":"function","name":"getLabPrice","stateMutability":"view",
   "inputs":[{"name":"labId","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getLabTVL","stateMutability":"view",
   "inputs":[{"name":"labId","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

// LabCreatedSignature is the canonical event signature.
const LabCreatedSignature = "LabCreated(uint256,address,string,string,string,address)"

var (
	LabsABI = mustParseABI(labsABI)

	// LabCreatedTopic is topic0 of every LabCreated log.
	LabCreatedTopic = LabsABI.Events["LabCreated"].ID

	// ErrNotLabCreated is returned when a log is not a LabCreated emission.
	ErrNotLabCreated = errors.New("log is not a LabCreated event")
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse labs abi: %v", err))
	}
	return parsed
}

type labCreatedEvent struct {
	LabId   *big.Int
	Owner   common.Address
	Name    string
	Symbol  string
	Domain  string
	H1Token common.Address
}

// OwnerTopic returns the topic value matching an indexed owner address.
func OwnerTopic(owner common.Address) common.Hash {
	return common.BytesToHash(owner.Bytes())
}

// DecodeLabCreated decodes a raw log into a LabCreated event.
func DecodeLabCreated(lg types.Log) (domain.LabCreated, error) {
	event := LabsABI.Events["LabCreated"]
	if len(lg.Topics) != 3 || lg.Topics[0] != event.ID {
		return domain.LabCreated{}, fmt.Errorf("%w: tx %s index %d", ErrNotLabCreated, lg.TxHash.Hex(), lg.Index)
	}

	var ev labCreatedEvent
	if err := LabsABI.UnpackIntoInterface(&ev, "LabCreated", lg.Data); err != nil {
		return domain.LabCreated{}, fmt.Errorf("decode LabCreated data: %w", err)
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(&ev, indexed, lg.Topics[1:]); err != nil {
		return domain.LabCreated{}, fmt.Errorf("decode LabCreated topics: %w", err)
	}

	return domain.LabCreated{
		LabID:       ev.LabId,
		Owner:       ev.Owner,
		Name:        ev.Name,
		Symbol:      ev.Symbol,
		Domain:      ev.Domain,
		H1Token:     ev.H1Token,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
	}, nil
}

// ContractCaller is the eth_call subset needed for lab state reads.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// LabReader reads live lab state from the diamond.
type LabReader struct {
	caller  ContractCaller
	diamond common.Address
}

// NewLabReader creates a reader bound to the diamond address.
func NewLabReader(caller ContractCaller, diamond common.Address) *LabReader {
	return &LabReader{caller: caller, diamond: diamond}
}

// LabPrice returns the current H1 share price of a lab in wei.
func (r *LabReader) LabPrice(ctx context.Context, labID *big.Int) (*big.Int, error) {
	return r.callUint256(ctx, "getLabPrice", labID)
}

// LabTVL returns the total $LABS value locked in a lab vault in wei.
func (r *LabReader) LabTVL(ctx context.Context, labID *big.Int) (*big.Int, error) {
	return r.callUint256(ctx, "getLabTVL", labID)
}

func (r *LabReader) callUint256(ctx context.Context, method string, args ...any) (*big.Int, error) {
	data, err := LabsABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := r.diamond
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := LabsABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, values[0])
	}
	return v, nil
}
