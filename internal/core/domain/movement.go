package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MovementKind represents the kind of balance movement.
type MovementKind string

const (
	MovementKindDeposit    MovementKind = "DEPOSIT"
	MovementKindTipOut     MovementKind = "TIP_OUT"
	MovementKindTipIn      MovementKind = "TIP_IN"
	MovementKindWithdrawal MovementKind = "WITHDRAWAL"
)

// MovementStatus represents the lifecycle state of a movement.
type MovementStatus string

const (
	// MovementStatusPending is the state of a withdrawal between the local
	// debit and the provider's answer.
	MovementStatusPending MovementStatus = "PENDING"
	// MovementStatusCompleted means the movement settled and stands.
	MovementStatusCompleted MovementStatus = "COMPLETED"
	// MovementStatusReversed means the debit was undone by a compensating credit.
	MovementStatusReversed MovementStatus = "REVERSED"
	// MovementStatusUnknown means the payment submission timed out after the
	// local debit; the remote outcome needs manual reconciliation.
	MovementStatusUnknown MovementStatus = "UNKNOWN"
)

// Movement is an append-only audit record of a single balance change. It is
// written in the same database transaction as the balance mutation it
// describes.
type Movement struct {
	ID           uuid.UUID      `json:"id"`
	AccountID    string         `json:"account_id"`
	Counterparty string         `json:"counterparty"` // peer account id or external address
	Kind         MovementKind   `json:"kind"`
	Status       MovementStatus `json:"status"`
	Amount       Amount         `json:"amount"` // magnitude, always positive
	Reference    *string        `json:"reference,omitempty"`
	ProviderRef  *string        `json:"provider_ref,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Signed returns the movement's effect on the account balance.
func (m *Movement) Signed() Amount {
	switch m.Kind {
	case MovementKindDeposit, MovementKindTipIn:
		return m.Amount
	default:
		return -m.Amount
	}
}

// NeedsAttention reports whether the movement requires operator reconciliation.
func (m *Movement) NeedsAttention() bool {
	return m.Status == MovementStatusUnknown
}

// BuildTipIdempotencyKey builds the cache key for a tip replay check.
func BuildTipIdempotencyKey(senderID, reference string) string {
	return fmt.Sprintf("tip:%s:%s", senderID, reference)
}

// BuildWithdrawalIdempotencyKey builds the cache key for a withdrawal replay check.
func BuildWithdrawalIdempotencyKey(accountID, reference string) string {
	return fmt.Sprintf("withdrawal:%s:%s", accountID, reference)
}
