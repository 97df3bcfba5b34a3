package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"
	"tipvault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WithdrawalServiceImpl implements ports.WithdrawalService. A withdrawal is
// the one operation that spans the local ledger and the external provider, so
// it follows a debit-first protocol: the balance is debited with a PENDING
// movement before the payment is submitted. A definitive provider refusal is
// undone with a compensating credit; an ambiguous outcome (timeout) leaves
// the debit standing and flags the movement for manual reconciliation,
// because re-crediting while the payment may still settle would double-spend.
type WithdrawalServiceImpl struct {
	ledger         ports.Ledger
	custody        ports.CustodyClient
	idempCache     ports.IdempotencyCache
	paymentTimeout time.Duration
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	ledger ports.Ledger,
	custody ports.CustodyClient,
	idempCache ports.IdempotencyCache,
	paymentTimeout time.Duration,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		ledger:         ledger,
		custody:        custody,
		idempCache:     idempCache,
		paymentTimeout: paymentTimeout,
		log:            log,
	}
}

// Withdraw debits the account and submits an external payment to the
// destination address.
func (s *WithdrawalServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawalRequest) (*ports.WithdrawalResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	if req.Reference != nil {
		if replayed, err := s.findReplay(ctx, req); err != nil {
			return nil, err
		} else if replayed != nil {
			return replayed, nil
		}
	}

	mv := &domain.Movement{
		ID:           uuid.New(),
		AccountID:    req.AccountID,
		Counterparty: req.DestinationAddress,
		Kind:         domain.MovementKindWithdrawal,
		Status:       domain.MovementStatusPending,
		Amount:       req.Amount,
		Reference:    req.Reference,
		CreatedAt:    time.Now().UTC(),
	}

	// Debit first. Funds are off the spendable balance before any external
	// call, so a concurrent tip cannot spend them a second time.
	newBalance, err := s.ledger.ApplyDelta(ctx, req.AccountID, -req.Amount, mv)
	if err != nil {
		return nil, err
	}

	payCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	payment, err := s.custody.SubmitPayment(payCtx, req.DestinationAddress, req.Amount)
	if err != nil {
		if apperror.Code(err) == "PRV_002" {
			// Timeout: the payment may or may not have gone through. The
			// debit stands until an operator resolves the remote outcome.
			s.markMovement(ctx, mv.ID, domain.MovementStatusUnknown, nil)
			s.log.Error().
				Str("movement_id", mv.ID.String()).
				Str("account_id", req.AccountID).
				Int64("amount", int64(req.Amount)).
				Msg("payment submission timed out, movement held for manual reconciliation")
			return nil, apperror.ErrAmbiguousPaymentOutcome(err)
		}
		// Definitive transport failure before the provider acted: undo the debit.
		return nil, s.compensate(ctx, req, mv, err)
	}

	if !payment.Accepted {
		return nil, s.compensate(ctx, req, mv, apperror.ErrProviderRejected(payment.Message))
	}

	if err := s.ledger.MarkMovement(ctx, mv.ID, domain.MovementStatusCompleted, &payment.ProviderRef); err != nil {
		// The payment went out and the debit is correct; only the audit
		// status is stale. Log and return success.
		s.log.Error().Err(err).Str("movement_id", mv.ID.String()).Msg("failed to mark withdrawal completed")
	}

	result := &ports.WithdrawalResult{
		MovementID:  mv.ID,
		NewBalance:  newBalance,
		ProviderRef: payment.ProviderRef,
	}

	if req.Reference != nil {
		s.cacheResult(ctx, domain.BuildWithdrawalIdempotencyKey(req.AccountID, *req.Reference), result)
	}

	s.log.Info().
		Str("movement_id", mv.ID.String()).
		Str("account_id", req.AccountID).
		Str("destination", req.DestinationAddress).
		Str("provider_ref", payment.ProviderRef).
		Int64("amount", int64(req.Amount)).
		Msg("withdrawal completed")

	return result, nil
}

// compensate credits the debited amount back and marks the movement
// REVERSED, then returns cause. If the compensating credit itself fails the
// movement is flagged UNKNOWN instead so the discrepancy is visible to an
// operator rather than silently lost.
func (s *WithdrawalServiceImpl) compensate(ctx context.Context, req ports.WithdrawalRequest, mv *domain.Movement, cause error) error {
	if _, err := s.ledger.ApplyDelta(ctx, req.AccountID, req.Amount, nil); err != nil {
		s.log.Error().Err(err).
			Str("movement_id", mv.ID.String()).
			Str("account_id", req.AccountID).
			Int64("amount", int64(req.Amount)).
			Msg("compensating credit failed, movement held for manual reconciliation")
		s.markMovement(ctx, mv.ID, domain.MovementStatusUnknown, nil)
		return apperror.InternalError(fmt.Errorf("compensating credit after failed withdrawal: %w", err))
	}

	s.markMovement(ctx, mv.ID, domain.MovementStatusReversed, nil)
	s.log.Warn().
		Str("movement_id", mv.ID.String()).
		Str("account_id", req.AccountID).
		Int64("amount", int64(req.Amount)).
		Err(cause).
		Msg("withdrawal reversed")
	return cause
}

// markMovement is a best-effort status transition used on failure paths.
func (s *WithdrawalServiceImpl) markMovement(ctx context.Context, id uuid.UUID, status domain.MovementStatus, providerRef *string) {
	if err := s.ledger.MarkMovement(ctx, id, status, providerRef); err != nil {
		s.log.Error().Err(err).Str("movement_id", id.String()).Str("status", string(status)).Msg("failed to mark movement")
	}
}

// findReplay checks the idempotency layers for an earlier execution of the
// same referenced withdrawal. Reversed movements do not count as executions,
// so a failed withdrawal's reference can be retried. A movement still in an
// unresolved state replays the ambiguous outcome, never a success.
func (s *WithdrawalServiceImpl) findReplay(ctx context.Context, req ports.WithdrawalRequest) (*ports.WithdrawalResult, error) {
	key := domain.BuildWithdrawalIdempotencyKey(req.AccountID, *req.Reference)

	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		result := &ports.WithdrawalResult{}
		if err := json.Unmarshal(cached, result); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("unmarshal cached withdrawal result: %w", err))
		}
		result.Replayed = true
		return result, nil
	}

	mv, err := s.ledger.FindMovementByReference(ctx, req.AccountID, *req.Reference)
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return nil, nil
	}
	if mv.Status == domain.MovementStatusUnknown || mv.Status == domain.MovementStatusPending {
		// The earlier execution never reached a definitive outcome. Reporting
		// it as a replayed success would hide the unresolved debit, so the
		// retry gets the same ambiguous answer until an operator resolves it.
		return nil, apperror.ErrAmbiguousPaymentOutcome(nil)
	}

	balance, err := s.ledger.Balance(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	result := &ports.WithdrawalResult{
		MovementID: mv.ID,
		NewBalance: balance,
		Replayed:   true,
	}
	if mv.ProviderRef != nil {
		result.ProviderRef = *mv.ProviderRef
	}
	return result, nil
}

// cacheResult stores the outcome for replay detection (best-effort).
func (s *WithdrawalServiceImpl) cacheResult(ctx context.Context, key string, result *ports.WithdrawalResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal withdrawal result for cache")
		return
	}
	if err := s.idempCache.Set(ctx, key, payload, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache withdrawal result")
	}
}
