package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/h1labs/labs/internal/core/domain"
)

// AnalyticsRepo implements storage.AnalyticsRepository using PostgreSQL.
type AnalyticsRepo struct {
	db *DB
}

// NewAnalyticsRepo creates a new PostgreSQL analytics repository.
func NewAnalyticsRepo(db *DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// Compute aggregates analytics across every table in one round trip.
func (r *AnalyticsRepo) Compute(ctx context.Context) (*domain.Analytics, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM labs) AS total_labs,
			(SELECT COALESCE(SUM(tvl), 0)::text FROM labs) AS total_tvl,
			(SELECT COUNT(*) FROM deposits) AS total_deposits,
			(SELECT COUNT(*) FROM redemptions) AS total_redemptions,
			(SELECT COUNT(DISTINCT LOWER(user_address)) FROM deposits) AS unique_depositors,
			(SELECT COUNT(*) FROM faucet_claims) AS faucet_claims,
			NOW() AS computed_at
	`
	var a domain.Analytics
	if err := r.db.GetContext(ctx, &a, query); err != nil {
		return nil, fmt.Errorf("failed to compute analytics: %w", err)
	}
	return &a, nil
}

// GetCached returns the cached snapshot stored under key.
func (r *AnalyticsRepo) GetCached(ctx context.Context, key string) (*domain.Analytics, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `SELECT payload FROM analytics_cache WHERE cache_key = $1`, key)
	if err != nil {
		return nil, notFound(err)
	}
	var a domain.Analytics
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("failed to decode cached analytics: %w", err)
	}
	return &a, nil
}

// PutCached stores a snapshot under key, replacing any previous one.
func (r *AnalyticsRepo) PutCached(ctx context.Context, key string, a *domain.Analytics) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analytics: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analytics_cache (cache_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, key, payload)
	if err != nil {
		return fmt.Errorf("failed to cache analytics: %w", err)
	}
	return nil
}
