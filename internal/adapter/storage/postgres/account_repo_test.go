package postgres

import (
	"context"
	"testing"
	"time"

	"tipvault/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(id string) *domain.Account {
	return &domain.Account{
		AccountID:      id,
		ReceiveAddress: "LgX9a1b2c3d4e5f6",
		Balance:        domain.Amount(50_000_000), // 0.5
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func accountColumns() []string {
	return []string{"account_id", "receive_address", "balance", "created_at", "updated_at"}
}

func accountRow(a *domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumns()).AddRow(
		a.AccountID, a.ReceiveAddress, int64(a.Balance), a.CreatedAt, a.UpdatedAt,
	)
}

func TestAccountRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1001")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.AccountID, a.ReceiveAddress, int64(a.Balance), a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_Create_Conflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1001")

	// ON CONFLICT DO NOTHING: zero rows affected means the account existed.
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(a.AccountID, a.ReceiveAddress, int64(a.Balance), a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.Create(context.Background(), a)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1001")

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_id").
		WithArgs(a.AccountID).
		WillReturnRows(accountRow(a))

	result, err := repo.GetByID(context.Background(), a.AccountID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.AccountID, result.AccountID)
	assert.Equal(t, a.ReceiveAddress, result.ReceiveAddress)
	assert.Equal(t, a.Balance, result.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_id").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(accountColumns()))

	result, err := repo.GetByID(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)
	a := newTestAccount("user-1001")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM accounts WHERE account_id .+ FOR UPDATE").
		WithArgs(a.AccountID).
		WillReturnRows(accountRow(a))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, a.AccountID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, a.Balance, result.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(int64(30_000_000), "user-1001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, "user-1001", domain.Amount(30_000_000))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_UpdateBalance_MissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(int64(1), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, "ghost", domain.Amount(1))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
