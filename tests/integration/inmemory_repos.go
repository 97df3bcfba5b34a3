package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tipvault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, acct *domain.Account) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[acct.AccountID]; exists {
		return false, nil
	}
	cp := *acct
	r.accounts[acct.AccountID] = &cp
	return true, nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *acct
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error) {
	return r.GetByID(ctx, accountID)
}

func (r *inMemoryAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID string, balance domain.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s not found", accountID)
	}
	acct.Balance = balance
	return nil
}

// --- In-Memory Movement Repo ---

type inMemoryMovementRepo struct {
	mu        sync.RWMutex
	movements []*domain.Movement
}

func newInMemoryMovementRepo() *inMemoryMovementRepo {
	return &inMemoryMovementRepo{}
}

func (r *inMemoryMovementRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *inMemoryMovementRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MovementStatus, providerRef *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.ID == id {
			m.Status = status
			if providerRef != nil {
				m.ProviderRef = providerRef
			}
			return nil
		}
	}
	return fmt.Errorf("movement %s not found", id)
}

func (r *inMemoryMovementRepo) GetByReference(ctx context.Context, accountID, reference string) (*domain.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.movements {
		if m.AccountID == accountID && m.Reference != nil && *m.Reference == reference && m.Status != domain.MovementStatusReversed {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryMovementRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Movement
	for _, m := range r.movements {
		if m.AccountID == accountID {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Serializing Transactor ---

// serialTransactor emulates the mutual exclusion that SELECT ... FOR UPDATE
// provides in production: a transaction holds a global lock from Begin until
// Commit or Rollback. Coarser than per-row locks, but sufficient to make
// concurrent ledger operations serialize the way they do against PostgreSQL.
type serialTransactor struct {
	mu sync.Mutex
}

func newSerialTransactor() *serialTransactor {
	return &serialTransactor{}
}

func (t *serialTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: t.mu.Unlock}, nil
}

// serialTx is a pgx.Tx that releases the transactor lock on first
// Commit/Rollback and no-ops everything else.
type serialTx struct {
	once    sync.Once
	release func()
}

func (t *serialTx) done() {
	t.once.Do(t.release)
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *serialTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
