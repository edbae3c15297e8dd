package domain

import "time"

// Analytics is the platform-wide summary shown on the dashboard.
type Analytics struct {
	TotalLabs        int64     `json:"totalLabs"        db:"total_labs"`
	TotalTVL         string    `json:"totalTvl"         db:"total_tvl"`
	TotalDeposits    int64     `json:"totalDeposits"    db:"total_deposits"`
	TotalRedemptions int64     `json:"totalRedemptions" db:"total_redemptions"`
	UniqueDepositors int64     `json:"uniqueDepositors" db:"unique_depositors"`
	FaucetClaims     int64     `json:"faucetClaims"     db:"faucet_claims"`
	ComputedAt       time.Time `json:"computedAt"       db:"computed_at"`
}
