package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"
	"tipvault/internal/core/ports/mocks"
	"tipvault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type withdrawalTestDeps struct {
	svc        *WithdrawalServiceImpl
	ledger     *mocks.MockLedger
	custody    *mocks.MockCustodyClient
	idempCache *mocks.MockIdempotencyCache
	ctrl       *gomock.Controller
}

func setupWithdrawalService(t *testing.T) *withdrawalTestDeps {
	ctrl := gomock.NewController(t)
	d := &withdrawalTestDeps{
		ledger:     mocks.NewMockLedger(ctrl),
		custody:    mocks.NewMockCustodyClient(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWithdrawalService(d.ledger, d.custody, d.idempCache, 30*time.Second, zerolog.Nop())
	return d
}

func TestWithdrawalService_Withdraw_Success(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500}

	var mvID uuid.UUID
	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(-500), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ domain.Amount, mv *domain.Movement) (domain.Amount, error) {
			assert.Equal(t, domain.MovementKindWithdrawal, mv.Kind)
			assert.Equal(t, domain.MovementStatusPending, mv.Status)
			assert.Equal(t, "LTCdest", mv.Counterparty)
			mvID = mv.ID
			return 1500, nil
		})
	d.custody.EXPECT().SubmitPayment(gomock.Any(), "LTCdest", domain.Amount(500)).
		Return(&ports.PaymentResult{Accepted: true, ProviderRef: "txhash1"}, nil)
	d.ledger.EXPECT().MarkMovement(ctx, gomock.Any(), domain.MovementStatusCompleted, gomock.Any()).DoAndReturn(
		func(_ context.Context, id uuid.UUID, _ domain.MovementStatus, providerRef *string) error {
			assert.Equal(t, mvID, id)
			require.NotNil(t, providerRef)
			assert.Equal(t, "txhash1", *providerRef)
			return nil
		})

	result, err := d.svc.Withdraw(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, domain.Amount(1500), result.NewBalance)
	assert.Equal(t, "txhash1", result.ProviderRef)
	assert.False(t, result.Replayed)
}

func TestWithdrawalService_Withdraw_ZeroAmount(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Withdraw(context.Background(), ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 0})

	assertAppError(t, err, "LED_002")
}

func TestWithdrawalService_Withdraw_InsufficientFunds(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500}

	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(-500), gomock.Any()).
		Return(domain.Amount(0), apperror.ErrInsufficientFunds())

	_, err := d.svc.Withdraw(ctx, req)

	assertAppError(t, err, "LED_001")
}

func TestWithdrawalService_Withdraw_RejectedCompensates(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500}

	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(-500), gomock.Any()).
		Return(domain.Amount(1500), nil)
	d.custody.EXPECT().SubmitPayment(gomock.Any(), "LTCdest", domain.Amount(500)).
		Return(&ports.PaymentResult{Accepted: false, Message: "value too low"}, nil)
	// Compensating credit restores the debited amount.
	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(500), nil).
		Return(domain.Amount(2000), nil)
	d.ledger.EXPECT().MarkMovement(ctx, gomock.Any(), domain.MovementStatusReversed, nil).Return(nil)

	_, err := d.svc.Withdraw(ctx, req)

	assertAppError(t, err, "PRV_003")
	assert.Contains(t, err.Error(), "value too low")
}

func TestWithdrawalService_Withdraw_UnavailableCompensates(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500}

	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(-500), gomock.Any()).
		Return(domain.Amount(1500), nil)
	d.custody.EXPECT().SubmitPayment(gomock.Any(), "LTCdest", domain.Amount(500)).
		Return(nil, apperror.ErrProviderUnavailable(errors.New("connection refused")))
	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(500), nil).
		Return(domain.Amount(2000), nil)
	d.ledger.EXPECT().MarkMovement(ctx, gomock.Any(), domain.MovementStatusReversed, nil).Return(nil)

	_, err := d.svc.Withdraw(ctx, req)

	assertAppError(t, err, "PRV_001")
}

func TestWithdrawalService_Withdraw_TimeoutHoldsDebit(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500}

	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(-500), gomock.Any()).
		Return(domain.Amount(1500), nil)
	d.custody.EXPECT().SubmitPayment(gomock.Any(), "LTCdest", domain.Amount(500)).
		Return(nil, apperror.ErrProviderTimeout(context.DeadlineExceeded))
	// No compensating credit: the movement is flagged for manual reconciliation.
	d.ledger.EXPECT().MarkMovement(ctx, gomock.Any(), domain.MovementStatusUnknown, nil).Return(nil)

	_, err := d.svc.Withdraw(ctx, req)

	assertAppError(t, err, "PRV_004")
}

func TestWithdrawalService_Withdraw_CompensationFailureHeld(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500}

	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(-500), gomock.Any()).
		Return(domain.Amount(1500), nil)
	d.custody.EXPECT().SubmitPayment(gomock.Any(), "LTCdest", domain.Amount(500)).
		Return(&ports.PaymentResult{Accepted: false, Message: "rejected"}, nil)
	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(500), nil).
		Return(domain.Amount(0), apperror.InternalError(errors.New("db down")))
	d.ledger.EXPECT().MarkMovement(ctx, gomock.Any(), domain.MovementStatusUnknown, nil).Return(nil)

	_, err := d.svc.Withdraw(ctx, req)

	assertAppError(t, err, "SYS_001")
}

func TestWithdrawalService_Withdraw_CachedReplay(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ref := "wd-1"
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500, Reference: &ref}

	original := &ports.WithdrawalResult{MovementID: uuid.New(), NewBalance: 1500, ProviderRef: "txhash1"}
	cached, err := json.Marshal(original)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(ctx, domain.BuildWithdrawalIdempotencyKey("alice", ref)).Return(cached, nil)

	result, err := d.svc.Withdraw(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, original.MovementID, result.MovementID)
	assert.Equal(t, "txhash1", result.ProviderRef)
}

func TestWithdrawalService_Withdraw_DurableReplay(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ref := "wd-1"
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500, Reference: &ref}

	mvID := uuid.New()
	providerRef := "txhash1"
	d.idempCache.EXPECT().Get(ctx, domain.BuildWithdrawalIdempotencyKey("alice", ref)).Return(nil, nil)
	d.ledger.EXPECT().FindMovementByReference(ctx, "alice", ref).Return(&domain.Movement{
		ID:          mvID,
		AccountID:   "alice",
		Kind:        domain.MovementKindWithdrawal,
		Status:      domain.MovementStatusCompleted,
		Amount:      500,
		ProviderRef: &providerRef,
	}, nil)
	d.ledger.EXPECT().Balance(ctx, "alice").Return(domain.Amount(1500), nil)

	result, err := d.svc.Withdraw(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, mvID, result.MovementID)
	assert.Equal(t, "txhash1", result.ProviderRef)
}

func TestWithdrawalService_Withdraw_UnresolvedReferenceStaysAmbiguous(t *testing.T) {
	// A retried reference whose earlier execution never reached a definitive
	// outcome must not replay as a success: the caller gets the ambiguous
	// answer again until an operator resolves the held debit.
	for _, status := range []domain.MovementStatus{
		domain.MovementStatusUnknown,
		domain.MovementStatusPending,
	} {
		t.Run(string(status), func(t *testing.T) {
			d := setupWithdrawalService(t)
			defer d.ctrl.Finish()

			ctx := context.Background()
			ref := "wd-ambiguous"
			req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500, Reference: &ref}

			d.idempCache.EXPECT().Get(ctx, domain.BuildWithdrawalIdempotencyKey("alice", ref)).Return(nil, nil)
			d.ledger.EXPECT().FindMovementByReference(ctx, "alice", ref).Return(&domain.Movement{
				ID:        uuid.New(),
				AccountID: "alice",
				Kind:      domain.MovementKindWithdrawal,
				Status:    status,
				Amount:    500,
			}, nil)
			// No debit, no payment submission: the held movement blocks re-execution.

			result, err := d.svc.Withdraw(ctx, req)

			assert.Nil(t, result)
			assertAppError(t, err, "PRV_004")
		})
	}
}

func TestWithdrawalService_Withdraw_ReversedReferenceRetries(t *testing.T) {
	d := setupWithdrawalService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ref := "wd-2"
	req := ports.WithdrawalRequest{AccountID: "alice", DestinationAddress: "LTCdest", Amount: 500, Reference: &ref}

	// GetByReference skips reversed movements, so a failed attempt's
	// reference executes fresh.
	d.idempCache.EXPECT().Get(ctx, domain.BuildWithdrawalIdempotencyKey("alice", ref)).Return(nil, nil)
	d.ledger.EXPECT().FindMovementByReference(ctx, "alice", ref).Return(nil, nil)
	d.ledger.EXPECT().ApplyDelta(ctx, "alice", domain.Amount(-500), gomock.Any()).
		Return(domain.Amount(1500), nil)
	d.custody.EXPECT().SubmitPayment(gomock.Any(), "LTCdest", domain.Amount(500)).
		Return(&ports.PaymentResult{Accepted: true, ProviderRef: "txhash2"}, nil)
	d.ledger.EXPECT().MarkMovement(ctx, gomock.Any(), domain.MovementStatusCompleted, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, domain.BuildWithdrawalIdempotencyKey("alice", ref), gomock.Any(), idempotencyTTL).Return(nil)

	result, err := d.svc.Withdraw(ctx, req)

	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, "txhash2", result.ProviderRef)
}
