package postgres

import (
	"context"
	"errors"
	"fmt"

	"tipvault/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account. A concurrent insert for the same account id
// wins silently: the method reports false and leaves the existing row intact,
// so the receive address bound first is never replaced.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) (bool, error) {
	query := `INSERT INTO accounts (account_id, receive_address, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		a.AccountID, a.ReceiveAddress, int64(a.Balance), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByID fetches an account by its id (without locking). Returns nil, nil
// when the account does not exist.
func (r *AccountRepo) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT account_id, receive_address, balance, created_at, updated_at
		FROM accounts WHERE account_id = $1`

	a := &domain.Account{}
	var balance int64
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&a.AccountID, &a.ReceiveAddress, &balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	a.Balance = domain.Amount(balance)
	return a, nil
}

// GetByIDForUpdate fetches an account with a pessimistic row lock.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error) {
	query := `SELECT account_id, receive_address, balance, created_at, updated_at
		FROM accounts WHERE account_id = $1 FOR UPDATE`

	a := &domain.Account{}
	var balance int64
	err := tx.QueryRow(ctx, query, accountID).Scan(
		&a.AccountID, &a.ReceiveAddress, &balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	a.Balance = domain.Amount(balance)
	return a, nil
}

// UpdateBalance sets an account's balance within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID string, balance domain.Amount) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE account_id = $2`

	tag, err := tx.Exec(ctx, query, int64(balance), accountID)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", accountID)
	}
	return nil
}
