package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/infra/storage"
)

// DepositRepo implements storage.DepositRepository using PostgreSQL.
type DepositRepo struct {
	db *DB
}

// NewDepositRepo creates a new PostgreSQL deposit repository.
func NewDepositRepo(db *DB) *DepositRepo {
	return &DepositRepo{db: db}
}

// Record inserts the deposit and credits the lab's TVL in the same transaction.
func (r *DepositRepo) Record(ctx context.Context, d *domain.Deposit) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO deposits (lab_id, user_address, amount, shares_out, tx_hash, block_number)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)
			RETURNING id, created_at
		`
		err := tx.QueryRowxContext(ctx, insert,
			d.LabID,
			d.User,
			d.Amount,
			orZero(d.SharesOut),
			d.TxHash,
			d.BlockNumber,
		).Scan(&d.ID, &d.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert deposit: %w", mapError(err))
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE labs SET tvl = tvl + $1::numeric, updated_at = NOW() WHERE id = $2`,
			d.Amount, d.LabID)
		if err != nil {
			return fmt.Errorf("failed to credit lab tvl: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// ListByLab returns deposits for a lab, newest first.
func (r *DepositRepo) ListByLab(ctx context.Context, labID int64, page storage.Page) ([]*domain.Deposit, error) {
	query, args := Select(`SELECT id, lab_id, user_address, amount::text AS amount, shares_out::text AS shares_out,
		tx_hash, block_number, created_at FROM deposits`).
		Where("lab_id = ?", labID).
		OrderBy("created_at DESC, id DESC").
		Page(page).
		Build()

	var deposits []*domain.Deposit
	if err := r.db.SelectContext(ctx, &deposits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
