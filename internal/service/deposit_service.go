package service

import (
	"context"
	"time"

	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DepositServiceImpl implements ports.DepositService.
type DepositServiceImpl struct {
	ledger  ports.Ledger
	custody ports.CustodyClient
	log     zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(ledger ports.Ledger, custody ports.CustodyClient, log zerolog.Logger) *DepositServiceImpl {
	return &DepositServiceImpl{
		ledger:  ledger,
		custody: custody,
		log:     log,
	}
}

// OpenDeposit ensures the account exists and returns its bound receive
// address. The address is stable across calls for the lifetime of the
// account.
func (s *DepositServiceImpl) OpenDeposit(ctx context.Context, accountID string) (string, error) {
	acct, err := s.ledger.EnsureAccount(ctx, accountID, s.custody.AllocateAddress)
	if err != nil {
		return "", err
	}
	return acct.ReceiveAddress, nil
}

// CheckDeposit reconciles the recorded balance against the provider's
// confirmed balance at the account's receive address. The provider call runs
// outside any database transaction; the credit decision happens afterwards
// under the account's row lock, so a stale provider read can only under-credit
// (and a later check catches up), never double-credit.
func (s *DepositServiceImpl) CheckDeposit(ctx context.Context, accountID string) (*ports.DepositCheckResult, error) {
	acct, err := s.ledger.EnsureAccount(ctx, accountID, s.custody.AllocateAddress)
	if err != nil {
		return nil, err
	}

	confirmed, err := s.custody.ConfirmedBalance(ctx, acct.ReceiveAddress)
	if err != nil {
		return nil, err
	}

	mv := &domain.Movement{
		ID:           uuid.New(),
		AccountID:    accountID,
		Counterparty: acct.ReceiveAddress,
		Kind:         domain.MovementKindDeposit,
		Status:       domain.MovementStatusCompleted,
		CreatedAt:    time.Now().UTC(),
	}

	newBalance, credited, err := s.ledger.CreditUpTo(ctx, accountID, confirmed, mv)
	if err != nil {
		return nil, err
	}

	result := &ports.DepositCheckResult{
		Credited:   credited,
		NewBalance: newBalance,
		Address:    acct.ReceiveAddress,
	}
	if credited {
		result.CreditedBy = mv.Amount
	}
	return result, nil
}

// Balance returns the recorded balance; 0 for an unknown account.
func (s *DepositServiceImpl) Balance(ctx context.Context, accountID string) (domain.Amount, error) {
	return s.ledger.Balance(ctx, accountID)
}

// Movements returns the account's most recent movements.
func (s *DepositServiceImpl) Movements(ctx context.Context, accountID string, limit int) ([]domain.Movement, error) {
	return s.ledger.Movements(ctx, accountID, limit)
}
