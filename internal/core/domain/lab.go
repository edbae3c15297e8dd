package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// LabCreated is a decoded LabCreated log emitted by the labs diamond.
type LabCreated struct {
	LabID   *big.Int       `json:"labId"`
	Owner   common.Address `json:"owner"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
	Domain  string         `json:"domain"`
	H1Token common.Address `json:"h1Token"`

	BlockNumber uint64      `json:"blockNumber"`
	TxHash      common.Hash `json:"txHash"`
	LogIndex    uint        `json:"logIndex"`
}

// Lab is the off-chain record of a lab kept by the API.
type Lab struct {
	ID           int64     `json:"id"           db:"id"`
	Owner        string    `json:"owner"        db:"owner"`
	Name         string    `json:"name"         db:"name"`
	Symbol       string    `json:"symbol"       db:"symbol"`
	Domain       string    `json:"domain"       db:"domain"`
	H1Token      string    `json:"h1Token"      db:"h1_token"`
	Description  string    `json:"description"  db:"description"`
	TVL          string    `json:"tvl"          db:"tvl"` // wei, decimal string
	CreatedBlock uint64    `json:"createdBlock" db:"created_block"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// LabView is a discovered lab enriched with live contract state.
type LabView struct {
	LabCreated
	Price        *big.Int `json:"price,omitempty"`
	TVL          *big.Int `json:"tvl,omitempty"`
	HydrateError string   `json:"hydrateError,omitempty"`
}

// LabFilter narrows lab listings. Zero values mean "no filter".
type LabFilter struct {
	Owner   string
	Domains []string
	Search  string
}
