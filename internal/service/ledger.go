package service

import (
	"context"
	"fmt"
	"time"

	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"
	"tipvault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerStore implements ports.Ledger on top of PostgreSQL row locks. Every
// balance mutation runs inside a transaction that takes SELECT ... FOR UPDATE
// on the affected account rows, so concurrent mutations on the same account
// serialize at the database.
type LedgerStore struct {
	accountRepo  ports.AccountRepository
	movementRepo ports.MovementRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(
	accountRepo ports.AccountRepository,
	movementRepo ports.MovementRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerStore {
	return &LedgerStore{
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		transactor:   transactor,
		log:          log,
	}
}

// EnsureAccount returns the account for accountID, creating it with a freshly
// allocated receive address when none exists. The allocator runs at most once
// and only for a genuinely new id; an existing account's bound address is
// never replaced. If two requests race on the same new id, the insert's
// conflict clause makes exactly one win; the loser re-reads the winner's row
// and its allocated address is discarded (provider addresses are free to
// abandon, balances are not).
func (s *LedgerStore) EnsureAccount(ctx context.Context, accountID string, allocate ports.AddressAllocator) (*domain.Account, error) {
	acct, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if acct != nil {
		return acct, nil
	}

	address, err := allocate(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	acct = &domain.Account{
		AccountID:      accountID,
		ReceiveAddress: address,
		Balance:        0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	inserted, err := s.accountRepo.Create(ctx, acct)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}
	if !inserted {
		// Lost the creation race. Keep the winner's binding.
		s.log.Warn().
			Str("account_id", accountID).
			Str("discarded_address", address).
			Msg("concurrent account creation, discarding allocated address")
		existing, err := s.accountRepo.GetByID(ctx, accountID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("re-read account after conflict: %w", err))
		}
		if existing == nil {
			return nil, apperror.InternalError(fmt.Errorf("account %s vanished after insert conflict", accountID))
		}
		return existing, nil
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("receive_address", address).
		Msg("account created")

	return acct, nil
}

// Balance returns the recorded balance, or 0 for an unknown account without
// creating a record.
func (s *LedgerStore) Balance(ctx context.Context, accountID string) (domain.Amount, error) {
	acct, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if acct == nil {
		return 0, nil
	}
	return acct.Balance, nil
}

// ApplyDelta atomically adds delta to the account balance under a row lock
// and returns the new balance. When mv is non-nil it is recorded in the same
// transaction, so the balance change and its audit record commit or roll back
// together.
func (s *LedgerStore) ApplyDelta(ctx context.Context, accountID string, delta domain.Amount, mv *domain.Movement) (domain.Amount, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	newBalance, err := s.applyDeltaInTx(ctx, dbTx, accountID, delta, mv)
	if err != nil {
		return 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return newBalance, nil
}

// applyDeltaInTx locks the account row, applies delta, and optionally records
// a movement, all inside the caller's transaction.
func (s *LedgerStore) applyDeltaInTx(ctx context.Context, dbTx pgx.Tx, accountID string, delta domain.Amount, mv *domain.Movement) (domain.Amount, error) {
	acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		return 0, apperror.ErrUnknownAccount()
	}

	newBalance := acct.Balance + delta
	if newBalance < 0 {
		return 0, apperror.ErrInsufficientFunds()
	}

	if err := s.accountRepo.UpdateBalance(ctx, dbTx, accountID, newBalance); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if mv != nil {
		if err := s.movementRepo.Create(ctx, dbTx, mv); err != nil {
			return 0, apperror.InternalError(fmt.Errorf("record movement: %w", err))
		}
	}

	return newBalance, nil
}

// Transfer atomically debits senderID and credits receiverID under row locks
// taken in sorted account-id order, so two opposing transfers between the
// same pair cannot deadlock. Both movements are recorded in the same
// transaction. Nothing moves unless everything commits.
func (s *LedgerStore) Transfer(ctx context.Context, senderID, receiverID string, amount domain.Amount, out, in *domain.Movement) (domain.Amount, domain.Amount, error) {
	if senderID == receiverID {
		return 0, 0, apperror.ErrSelfTransfer()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	first, second := senderID, receiverID
	if receiverID < senderID {
		first, second = receiverID, senderID
	}

	locked := make(map[string]*domain.Account, 2)
	for _, id := range []string{first, second} {
		acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return 0, 0, apperror.InternalError(fmt.Errorf("lock account %s: %w", id, err))
		}
		if acct == nil {
			return 0, 0, apperror.ErrUnknownAccount()
		}
		locked[id] = acct
	}

	sender, receiver := locked[senderID], locked[receiverID]

	senderBalance := sender.Balance - amount
	if senderBalance < 0 {
		return 0, 0, apperror.ErrInsufficientFunds()
	}
	receiverBalance := receiver.Balance + amount

	if err := s.accountRepo.UpdateBalance(ctx, dbTx, senderID, senderBalance); err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if err := s.accountRepo.UpdateBalance(ctx, dbTx, receiverID, receiverBalance); err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("credit receiver: %w", err))
	}

	if err := s.movementRepo.Create(ctx, dbTx, out); err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("record outgoing movement: %w", err))
	}
	if err := s.movementRepo.Create(ctx, dbTx, in); err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("record incoming movement: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return senderBalance, receiverBalance, nil
}

// CreditUpTo raises the balance to target if and only if target exceeds the
// current balance, deciding under the row lock. The credit is the difference,
// so repeating the call with the same target is a no-op. A target below the
// current balance is left alone: local spends legitimately drop the balance
// under the provider's view, and shrinking provider numbers are not trusted
// to destroy recorded funds.
func (s *LedgerStore) CreditUpTo(ctx context.Context, accountID string, target domain.Amount, mv *domain.Movement) (domain.Amount, bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, false, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return 0, false, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		return 0, false, apperror.ErrUnknownAccount()
	}

	if target <= acct.Balance {
		if target < acct.Balance {
			s.log.Warn().
				Str("account_id", accountID).
				Int64("recorded", int64(acct.Balance)).
				Int64("provider", int64(target)).
				Msg("provider balance below recorded balance, no credit")
		}
		if err := dbTx.Commit(ctx); err != nil {
			return 0, false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}
		return acct.Balance, false, nil
	}

	credit := target - acct.Balance
	if err := s.accountRepo.UpdateBalance(ctx, dbTx, accountID, target); err != nil {
		return 0, false, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if mv != nil {
		mv.Amount = credit
		if err := s.movementRepo.Create(ctx, dbTx, mv); err != nil {
			return 0, false, apperror.InternalError(fmt.Errorf("record movement: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, false, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID).
		Int64("credited_by", int64(credit)).
		Int64("new_balance", int64(target)).
		Msg("deposit credited")

	return target, true, nil
}

// MarkMovement transitions a movement's lifecycle state, attaching the
// provider reference when given.
func (s *LedgerStore) MarkMovement(ctx context.Context, id uuid.UUID, status domain.MovementStatus, providerRef *string) error {
	if err := s.movementRepo.UpdateStatus(ctx, id, status, providerRef); err != nil {
		return apperror.InternalError(fmt.Errorf("update movement status: %w", err))
	}
	return nil
}

// FindMovementByReference resolves a client idempotency reference to the
// movement it produced, ignoring reversed movements.
func (s *LedgerStore) FindMovementByReference(ctx context.Context, accountID, reference string) (*domain.Movement, error) {
	mv, err := s.movementRepo.GetByReference(ctx, accountID, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find movement by reference: %w", err))
	}
	return mv, nil
}

// Movements returns the most recent movements for an account, newest first.
func (s *LedgerStore) Movements(ctx context.Context, accountID string, limit int) ([]domain.Movement, error) {
	movements, err := s.movementRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list movements: %w", err))
	}
	return movements, nil
}
