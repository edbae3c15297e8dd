package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/infra/storage"
)

const labColumns = `id, owner, name, symbol, domain, h1_token, description, tvl::text AS tvl,
	created_block, created_at, updated_at`

// LabRepo implements storage.LabRepository using PostgreSQL.
type LabRepo struct {
	db *DB
}

// NewLabRepo creates a new PostgreSQL lab repository.
func NewLabRepo(db *DB) *LabRepo {
	return &LabRepo{db: db}
}

// Upsert inserts a lab or updates its metadata. TVL is owned by deposits and redemptions.
func (r *LabRepo) Upsert(ctx context.Context, lab *domain.Lab) error {
	query := `
		INSERT INTO labs (id, owner, name, symbol, domain, h1_token, description, created_block)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			domain = EXCLUDED.domain,
			h1_token = EXCLUDED.h1_token,
			description = EXCLUDED.description,
			created_block = EXCLUDED.created_block,
			updated_at = NOW()
		RETURNING tvl::text, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		lab.ID,
		lab.Owner,
		lab.Name,
		lab.Symbol,
		lab.Domain,
		lab.H1Token,
		lab.Description,
		lab.CreatedBlock,
	).Scan(&lab.TVL, &lab.CreatedAt, &lab.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert lab: %w", mapError(err))
	}
	return nil
}

// GetByID retrieves a lab by ID.
func (r *LabRepo) GetByID(ctx context.Context, id int64) (*domain.Lab, error) {
	var lab domain.Lab
	err := r.db.GetContext(ctx, &lab, `SELECT `+labColumns+` FROM labs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lab: %w", err)
	}
	return &lab, nil
}

// List returns labs matching filter ordered by ID, plus the total match count.
func (r *LabRepo) List(ctx context.Context, filter domain.LabFilter, page storage.Page) ([]*domain.Lab, int64, error) {
	b := Select(`SELECT ` + labColumns + ` FROM labs`).
		WhereIf(filter.Owner != "", "LOWER(owner) = LOWER(?)", filter.Owner).
		WhereIf(len(filter.Domains) > 0, "domain = ANY(?)", pq.Array(filter.Domains))
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := likePattern(s)
		b.Where("name ILIKE ? OR symbol ILIKE ? OR description ILIKE ?", p, p, p)
	}

	countQuery, countArgs := b.Count("labs")
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count labs: %w", err)
	}

	query, args := b.OrderBy("id ASC").Page(page).Build()
	var labs []*domain.Lab
	if err := r.db.SelectContext(ctx, &labs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list labs: %w", err)
	}
	return labs, total, nil
}
