package postgres

import (
	"context"
	"fmt"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/infra/storage"
)

// FaucetRepo implements storage.FaucetRepository using PostgreSQL.
type FaucetRepo struct {
	db *DB
}

// NewFaucetRepo creates a new PostgreSQL faucet repository.
func NewFaucetRepo(db *DB) *FaucetRepo {
	return &FaucetRepo{db: db}
}

// Save records a claim. ClaimedAt is set by the database when zero.
func (r *FaucetRepo) Save(ctx context.Context, c *domain.FaucetClaim) error {
	query := `
		INSERT INTO faucet_claims (id, address, amount, tx_hash, claimed_at)
		VALUES ($1, $2, $3::numeric, $4, COALESCE($5, NOW()))
		RETURNING claimed_at
	`
	var claimedAt any
	if !c.ClaimedAt.IsZero() {
		claimedAt = c.ClaimedAt
	}
	err := r.db.QueryRowxContext(ctx, query, c.ID, c.Address, c.Amount, c.TxHash, claimedAt).Scan(&c.ClaimedAt)
	if err != nil {
		return fmt.Errorf("failed to save faucet claim: %w", mapError(err))
	}
	return nil
}

// ListByAddress returns claims for address, newest first.
func (r *FaucetRepo) ListByAddress(ctx context.Context, address string, page storage.Page) ([]*domain.FaucetClaim, error) {
	query, args := Select(`SELECT id::text AS id, address, amount::text AS amount, tx_hash, claimed_at FROM faucet_claims`).
		Where("LOWER(address) = LOWER(?)", address).
		OrderBy("claimed_at DESC").
		Page(page).
		Build()

	var claims []*domain.FaucetClaim
	if err := r.db.SelectContext(ctx, &claims, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list faucet claims: %w", err)
	}
	return claims, nil
}
