package domain

import "time"

// Account binds an external user identity to a custody receive address and a
// spendable balance. The account id is opaque to the ledger (the chat layer
// supplies whatever identifier it keys users by).
type Account struct {
	AccountID      string    `json:"account_id"`
	ReceiveAddress string    `json:"receive_address"`
	Balance        Amount    `json:"balance"` // base units, never negative
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
