package ports

import (
	"context"

	"tipvault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for ledger accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	// Create inserts a new account. Returns false if an account with the same
	// id already exists (the insert is a no-op in that case).
	Create(ctx context.Context, acct *domain.Account) (bool, error)
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, accountID string, balance domain.Amount) error
}

// MovementRepository defines persistence for the append-only movement log.
type MovementRepository interface {
	Create(ctx context.Context, tx pgx.Tx, m *domain.Movement) error
	// UpdateStatus transitions a movement's lifecycle state, optionally
	// attaching the provider's transaction reference.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MovementStatus, providerRef *string) error
	// GetByReference returns the movement recorded for a client-supplied
	// idempotency reference, ignoring reversed movements. nil, nil if none.
	GetByReference(ctx context.Context, accountID, reference string) (*domain.Movement, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Movement, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
