package storage

import (
	"context"
	"errors"

	"github.com/h1labs/labs/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record (or a record it references) doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique key is already taken
	ErrConflict = errors.New("already exists")

	// ErrInsufficientTVL is returned when a redemption exceeds the lab's TVL
	ErrInsufficientTVL = errors.New("insufficient lab tvl")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page into valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}

// LabRepository handles lab storage operations
type LabRepository interface {
	// Upsert creates or updates a lab by ID. TVL is never overwritten.
	Upsert(ctx context.Context, lab *domain.Lab) error

	// GetByID retrieves a lab
	GetByID(ctx context.Context, id int64) (*domain.Lab, error)

	// List returns a page of labs and the total match count
	List(ctx context.Context, filter domain.LabFilter, page Page) ([]*domain.Lab, int64, error)
}

// DepositRepository handles deposits
type DepositRepository interface {
	// Record saves a deposit and adds its amount to the lab's TVL atomically
	Record(ctx context.Context, d *domain.Deposit) error

	// ListByLab returns a page of deposits for a lab, newest first
	ListByLab(ctx context.Context, labID int64, page Page) ([]*domain.Deposit, error)
}

// RedemptionRepository handles redemptions
type RedemptionRepository interface {
	// Record saves a redemption and subtracts its assets from the lab's TVL atomically
	Record(ctx context.Context, r *domain.Redemption) error

	// List returns a page of redemptions, newest first
	List(ctx context.Context, filter domain.RedemptionFilter, page Page) ([]*domain.Redemption, error)
}

// AnalyticsRepository computes and caches platform analytics
type AnalyticsRepository interface {
	// Compute aggregates analytics from the source tables
	Compute(ctx context.Context) (*domain.Analytics, error)

	// GetCached returns a cached snapshot or ErrNotFound
	GetCached(ctx context.Context, key string) (*domain.Analytics, error)

	// PutCached stores a snapshot
	PutCached(ctx context.Context, key string, a *domain.Analytics) error
}

// FaucetRepository stores faucet claims
type FaucetRepository interface {
	// Save records a claim
	Save(ctx context.Context, c *domain.FaucetClaim) error

	// ListByAddress returns a page of claims for an address, newest first
	ListByAddress(ctx context.Context, address string, page Page) ([]*domain.FaucetClaim, error)
}

// Store bundles every repository.
type Store struct {
	Labs        LabRepository
	Deposits    DepositRepository
	Redemptions RedemptionRepository
	Analytics   AnalyticsRepository
	Faucet      FaucetRepository
}
