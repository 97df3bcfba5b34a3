package dto

// DepositOpenResponse is the response for a deposit address request.
type DepositOpenResponse struct {
	AccountID string `json:"account_id"`
	Address   string `json:"address"`
}

// DepositCheckResponse is the response for a deposit reconciliation pass.
type DepositCheckResponse struct {
	Address    string `json:"address"`
	Credited   bool   `json:"credited"`
	CreditedBy string `json:"credited_by"` // decimal, display denomination
	NewBalance string `json:"new_balance"`
}

// BalanceResponse is the response for a balance query. The balance is
// rendered both as a decimal string and in raw base units.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
	BaseUnits int64  `json:"base_units"`
}

// TipSendRequest is the request body for an internal transfer.
type TipSendRequest struct {
	SenderID   string  `json:"sender_id" binding:"required,max=64,safe_id"`
	ReceiverID string  `json:"receiver_id" binding:"required,max=64,safe_id"`
	Amount     string  `json:"amount" binding:"required,max=32"`
	Reference  *string `json:"reference,omitempty" binding:"omitempty,min=1,max=100,safe_id"`
}

// TipSendResponse is the response for a completed transfer.
type TipSendResponse struct {
	MovementID      string `json:"movement_id"`
	SenderBalance   string `json:"sender_balance"`
	ReceiverBalance string `json:"receiver_balance"`
	Replayed        bool   `json:"replayed"`
}

// WithdrawRequest is the request body for a withdrawal.
type WithdrawRequest struct {
	AccountID          string  `json:"account_id" binding:"required,max=64,safe_id"`
	DestinationAddress string  `json:"destination_address" binding:"required,min=20,max=90,safe_id"`
	Amount             string  `json:"amount" binding:"required,max=32"`
	Reference          *string `json:"reference,omitempty" binding:"omitempty,min=1,max=100,safe_id"`
}

// WithdrawResponse is the response for a completed withdrawal.
type WithdrawResponse struct {
	MovementID  string `json:"movement_id"`
	NewBalance  string `json:"new_balance"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Replayed    bool   `json:"replayed"`
}

// MovementResponse is one entry of the account movement log.
type MovementResponse struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	Status       string  `json:"status"`
	Amount       string  `json:"amount"`
	Counterparty string  `json:"counterparty"`
	Reference    *string `json:"reference,omitempty"`
	ProviderRef  *string `json:"provider_ref,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// MovementListResponse wraps an account's movement log.
type MovementListResponse struct {
	AccountID string             `json:"account_id"`
	Items     []MovementResponse `json:"items"`
}
