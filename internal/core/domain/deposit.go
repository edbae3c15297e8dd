package domain

import "time"

// Deposit records $LABS staked into a lab vault.
type Deposit struct {
	ID          int64     `json:"id"          db:"id"`
	LabID       int64     `json:"labId"       db:"lab_id"`
	User        string    `json:"user"        db:"user_address"`
	Amount      string    `json:"amount"      db:"amount"`
	SharesOut   string    `json:"sharesOut"   db:"shares_out"`
	TxHash      string    `json:"txHash"      db:"tx_hash"`
	BlockNumber uint64    `json:"blockNumber" db:"block_number"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// Redemption records H1 shares redeemed back to $LABS.
type Redemption struct {
	ID          int64     `json:"id"          db:"id"`
	LabID       int64     `json:"labId"       db:"lab_id"`
	User        string    `json:"user"        db:"user_address"`
	SharesIn    string    `json:"sharesIn"    db:"shares_in"`
	AssetsOut   string    `json:"assetsOut"   db:"assets_out"`
	TxHash      string    `json:"txHash"      db:"tx_hash"`
	BlockNumber uint64    `json:"blockNumber" db:"block_number"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// RedemptionFilter narrows redemption listings.
type RedemptionFilter struct {
	User  string
	LabID int64
}
