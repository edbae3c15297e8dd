package domain

import "time"

// FaucetClaim is a single faucet payout.
type FaucetClaim struct {
	ID        string    `json:"id"        db:"id"`
	Address   string    `json:"address"   db:"address"`
	Amount    string    `json:"amount"    db:"amount"`
	TxHash    string    `json:"txHash"    db:"tx_hash"`
	ClaimedAt time.Time `json:"claimedAt" db:"claimed_at"`
}
