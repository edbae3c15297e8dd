package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/infra/storage"
)

// RedemptionRepo implements storage.RedemptionRepository using PostgreSQL.
type RedemptionRepo struct {
	db *DB
}

// NewRedemptionRepo creates a new PostgreSQL redemption repository.
func NewRedemptionRepo(db *DB) *RedemptionRepo {
	return &RedemptionRepo{db: db}
}

// Record inserts the redemption and debits the lab's TVL in the same transaction.
// The debit is refused when the lab holds less than AssetsOut.
func (r *RedemptionRepo) Record(ctx context.Context, rd *domain.Redemption) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var sufficient bool
		err := tx.QueryRowxContext(ctx,
			`SELECT tvl >= $1::numeric FROM labs WHERE id = $2 FOR UPDATE`,
			orZero(rd.AssetsOut), rd.LabID).Scan(&sufficient)
		if err != nil {
			return fmt.Errorf("failed to lock lab: %w", notFound(err))
		}
		if !sufficient {
			return storage.ErrInsufficientTVL
		}

		insert := `
			INSERT INTO redemptions (lab_id, user_address, shares_in, assets_out, tx_hash, block_number)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)
			RETURNING id, created_at
		`
		err = tx.QueryRowxContext(ctx, insert,
			rd.LabID,
			rd.User,
			rd.SharesIn,
			orZero(rd.AssetsOut),
			rd.TxHash,
			rd.BlockNumber,
		).Scan(&rd.ID, &rd.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert redemption: %w", mapError(err))
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE labs SET tvl = tvl - $1::numeric, updated_at = NOW() WHERE id = $2`,
			orZero(rd.AssetsOut), rd.LabID)
		if err != nil {
			return fmt.Errorf("failed to debit lab tvl: %w", err)
		}
		return nil
	})
}

// List returns redemptions newest first.
func (r *RedemptionRepo) List(ctx context.Context, filter domain.RedemptionFilter, page storage.Page) ([]*domain.Redemption, error) {
	query, args := Select(`SELECT id, lab_id, user_address, shares_in::text AS shares_in, assets_out::text AS assets_out,
		tx_hash, block_number, created_at FROM redemptions`).
		WhereIf(filter.User != "", "LOWER(user_address) = LOWER(?)", filter.User).
		WhereIf(filter.LabID > 0, "lab_id = ?", filter.LabID).
		OrderBy("created_at DESC, id DESC").
		Page(page).
		Build()

	var out []*domain.Redemption
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	return out, nil
}
