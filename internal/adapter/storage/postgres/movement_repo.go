package postgres

import (
	"context"
	"errors"
	"fmt"

	"tipvault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MovementRepo implements ports.MovementRepository.
type MovementRepo struct {
	pool Pool
}

// NewMovementRepo creates a new MovementRepo.
func NewMovementRepo(pool Pool) *MovementRepo {
	return &MovementRepo{pool: pool}
}

const movementColumns = `id, account_id, counterparty, kind, status, amount, reference, provider_ref, created_at`

// Create inserts a movement within a database transaction. Movements ride the
// same transaction as the balance change they describe.
func (r *MovementRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Movement) error {
	query := `INSERT INTO movements (id, account_id, counterparty, kind, status, amount, reference, provider_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		m.ID, m.AccountID, m.Counterparty, string(m.Kind), string(m.Status),
		int64(m.Amount), m.Reference, m.ProviderRef, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// UpdateStatus transitions a movement's lifecycle state. providerRef, when
// non-nil, records the provider's transaction identifier.
func (r *MovementRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MovementStatus, providerRef *string) error {
	query := `UPDATE movements SET status = $1, provider_ref = COALESCE($2, provider_ref) WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, string(status), providerRef, id)
	if err != nil {
		return fmt.Errorf("update movement status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("movement not found: %s", id)
	}
	return nil
}

// GetByReference fetches the movement recorded for a client idempotency
// reference. Reversed movements are ignored so a reversed attempt does not
// block a retry with the same reference.
func (r *MovementRepo) GetByReference(ctx context.Context, accountID, reference string) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE account_id = $1 AND reference = $2 AND status <> $3`

	m, err := r.scanOne(r.pool.QueryRow(ctx, query, accountID, reference, string(domain.MovementStatusReversed)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement by reference: %w", err)
	}
	return m, nil
}

// ListByAccount returns the most recent movements for an account.
func (r *MovementRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}
	return movements, nil
}

func (r *MovementRepo) scanOne(row pgx.Row) (*domain.Movement, error) {
	m := &domain.Movement{}
	var kind, status string
	var amount int64
	if err := row.Scan(
		&m.ID, &m.AccountID, &m.Counterparty, &kind, &status,
		&amount, &m.Reference, &m.ProviderRef, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.Kind = domain.MovementKind(kind)
	m.Status = domain.MovementStatus(status)
	m.Amount = domain.Amount(amount)
	return m, nil
}
