package faucet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc20TransferABI = `[{"type":"function","name":"transfer","stateMutability":"nonpayable",
  "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
  "outputs":[{"name":"","type":"bool"}]}]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	return parsed
}()

// Dispenser pays out a faucet claim and returns the transaction hash.
type Dispenser interface {
	Dispense(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
}

// TxBackend is the slice of ethclient.Client needed to send a transaction.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TokenDispenser transfers an ERC-20 token from a hot wallet.
// A zero token address sends the native coin instead.
type TokenDispenser struct {
	backend TxBackend
	key     *ecdsa.PrivateKey
	from    common.Address
	token   common.Address

	// mu serializes nonce allocation for the hot wallet
	mu sync.Mutex
}

// NewTokenDispenser parses a hex private key (with or without 0x).
func NewTokenDispenser(backend TxBackend, privateKeyHex string, token common.Address) (*TokenDispenser, error) {
	if backend == nil {
		return nil, errors.New("faucet: nil tx backend")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("faucet: invalid private key: %w", err)
	}
	return &TokenDispenser{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		token:   token,
	}, nil
}

// From returns the hot wallet address.
func (d *TokenDispenser) From() common.Address {
	return d.from
}

func (d *TokenDispenser) Dispense(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	var (
		target = d.token
		value  = new(big.Int)
		data   []byte
		err    error
	)
	if d.token == (common.Address{}) {
		target = to
		value = amount
	} else {
		data, err = erc20ABI.Pack("transfer", to, amount)
		if err != nil {
			return common.Hash{}, fmt.Errorf("pack transfer: %w", err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	chainID, err := d.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := d.backend.PendingNonceAt(ctx, d.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := d.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}
	gas, err := d.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  d.from,
		To:    &target,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &target,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := d.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signed.Hash(), nil
}
