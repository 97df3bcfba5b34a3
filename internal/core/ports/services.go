package ports

import (
	"context"
	"time"

	"tipvault/internal/core/domain"

	"github.com/google/uuid"
)

// Ledger is the persistent ledger store: the single shared mutable resource of
// the core. Every balance mutation funnels through its atomic operations, each
// of which executes under a per-account row lock inside a database transaction.
type Ledger interface {
	// EnsureAccount returns the existing account or creates one, invoking the
	// allocator exactly once for a genuinely new account id. It never replaces
	// an already bound receive address.
	EnsureAccount(ctx context.Context, accountID string, allocate AddressAllocator) (*domain.Account, error)
	// Balance returns 0 for an unknown account without creating a record.
	Balance(ctx context.Context, accountID string) (domain.Amount, error)
	// ApplyDelta atomically adds delta (positive or negative) to the balance
	// and returns the new balance. A movement, when non-nil, is recorded in
	// the same transaction. Fails with InsufficientFunds if the result would
	// be negative and UnknownAccount if no record exists.
	ApplyDelta(ctx context.Context, accountID string, delta domain.Amount, mv *domain.Movement) (domain.Amount, error)
	// Transfer atomically debits the sender and credits the receiver as an
	// all-or-nothing unit, recording both movements in the same transaction.
	Transfer(ctx context.Context, senderID, receiverID string, amount domain.Amount, out, in *domain.Movement) (senderBalance, receiverBalance domain.Amount, err error)
	// CreditUpTo raises the balance to target if and only if target exceeds
	// the current balance, under the same lock discipline as every other
	// mutation. Reports whether a credit was applied.
	CreditUpTo(ctx context.Context, accountID string, target domain.Amount, mv *domain.Movement) (newBalance domain.Amount, credited bool, err error)
	// MarkMovement transitions a movement's lifecycle state.
	MarkMovement(ctx context.Context, id uuid.UUID, status domain.MovementStatus, providerRef *string) error
	// FindMovementByReference resolves a client idempotency reference.
	FindMovementByReference(ctx context.Context, accountID, reference string) (*domain.Movement, error)
	// Movements returns the most recent movements for an account.
	Movements(ctx context.Context, accountID string, limit int) ([]domain.Movement, error)
}

// --- Service Ports (Business Logic) ---

// DepositService covers the deposit-facing operations: address binding,
// reconciliation against provider-confirmed funds, and balance reads.
type DepositService interface {
	// OpenDeposit ensures and returns the account's bound receive address.
	OpenDeposit(ctx context.Context, accountID string) (string, error)
	// CheckDeposit reconciles the recorded balance against the provider's
	// confirmed balance for the account's address.
	CheckDeposit(ctx context.Context, accountID string) (*DepositCheckResult, error)
	Balance(ctx context.Context, accountID string) (domain.Amount, error)
	Movements(ctx context.Context, accountID string, limit int) ([]domain.Movement, error)
}

// DepositCheckResult is the outcome of one reconciliation pass.
type DepositCheckResult struct {
	Credited   bool          `json:"credited"`
	CreditedBy domain.Amount `json:"credited_by"`
	NewBalance domain.Amount `json:"new_balance"`
	Address    string        `json:"address"`
}

// TransferService moves balance between two internal accounts.
type TransferService interface {
	SendTip(ctx context.Context, req TipRequest) (*TipResult, error)
}

// TipRequest holds validated input for an internal transfer.
type TipRequest struct {
	SenderID   string
	ReceiverID string
	Amount     domain.Amount
	Reference  *string // optional client idempotency key
}

// TipResult holds the post-transfer balances.
type TipResult struct {
	MovementID      uuid.UUID     `json:"movement_id"`
	SenderBalance   domain.Amount `json:"sender_balance"`
	ReceiverBalance domain.Amount `json:"receiver_balance"`
	Replayed        bool          `json:"replayed"`
}

// WithdrawalService converts internal balance into an external payment.
type WithdrawalService interface {
	Withdraw(ctx context.Context, req WithdrawalRequest) (*WithdrawalResult, error)
}

// WithdrawalRequest holds validated input for a withdrawal.
type WithdrawalRequest struct {
	AccountID          string
	DestinationAddress string
	Amount             domain.Amount
	Reference          *string // optional client idempotency key
}

// WithdrawalResult holds the outcome of an accepted withdrawal.
type WithdrawalResult struct {
	MovementID  uuid.UUID     `json:"movement_id"`
	NewBalance  domain.Amount `json:"new_balance"`
	ProviderRef string        `json:"provider_ref"`
	Replayed    bool          `json:"replayed"`
}

// IdempotencyCache is the fast-path replay check for referenced operations.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // cached result JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
