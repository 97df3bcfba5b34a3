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

const idempotencyTTL = 24 * time.Hour

// TransferServiceImpl implements ports.TransferService.
type TransferServiceImpl struct {
	ledger     ports.Ledger
	custody    ports.CustodyClient
	idempCache ports.IdempotencyCache
	log        zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	ledger ports.Ledger,
	custody ports.CustodyClient,
	idempCache ports.IdempotencyCache,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		ledger:     ledger,
		custody:    custody,
		idempCache: idempCache,
		log:        log,
	}
}

// SendTip moves amount from the sender to the receiver atomically. The
// receiver account is created on first contact, so anyone can be tipped
// before they ever deposit. A client reference, when present, makes the
// operation replay-safe: a repeated reference returns the original outcome
// without moving funds again.
func (s *TransferServiceImpl) SendTip(ctx context.Context, req ports.TipRequest) (*ports.TipResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.SenderID == req.ReceiverID {
		return nil, apperror.ErrSelfTransfer()
	}

	if req.Reference != nil {
		if replayed, err := s.findReplay(ctx, req); err != nil {
			return nil, err
		} else if replayed != nil {
			return replayed, nil
		}
	}

	// Receiver may not exist yet; bind it before taking any locks so the
	// provider call stays outside the transfer transaction.
	if _, err := s.ledger.EnsureAccount(ctx, req.ReceiverID, s.custody.AllocateAddress); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := &domain.Movement{
		ID:           uuid.New(),
		AccountID:    req.SenderID,
		Counterparty: req.ReceiverID,
		Kind:         domain.MovementKindTipOut,
		Status:       domain.MovementStatusCompleted,
		Amount:       req.Amount,
		Reference:    req.Reference,
		CreatedAt:    now,
	}
	in := &domain.Movement{
		ID:           uuid.New(),
		AccountID:    req.ReceiverID,
		Counterparty: req.SenderID,
		Kind:         domain.MovementKindTipIn,
		Status:       domain.MovementStatusCompleted,
		Amount:       req.Amount,
		CreatedAt:    now,
	}

	senderBalance, receiverBalance, err := s.ledger.Transfer(ctx, req.SenderID, req.ReceiverID, req.Amount, out, in)
	if err != nil {
		return nil, err
	}

	result := &ports.TipResult{
		MovementID:      out.ID,
		SenderBalance:   senderBalance,
		ReceiverBalance: receiverBalance,
	}

	if req.Reference != nil {
		s.cacheResult(ctx, domain.BuildTipIdempotencyKey(req.SenderID, *req.Reference), result)
	}

	s.log.Info().
		Str("movement_id", out.ID.String()).
		Str("sender_id", req.SenderID).
		Str("receiver_id", req.ReceiverID).
		Int64("amount", int64(req.Amount)).
		Msg("tip sent")

	return result, nil
}

// findReplay checks the two idempotency layers for an earlier execution of
// the same referenced tip: the Redis cache first, then the durable movement
// log. Returns nil when the reference is fresh.
func (s *TransferServiceImpl) findReplay(ctx context.Context, req ports.TipRequest) (*ports.TipResult, error) {
	key := domain.BuildTipIdempotencyKey(req.SenderID, *req.Reference)

	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		result := &ports.TipResult{}
		if err := json.Unmarshal(cached, result); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("unmarshal cached tip result: %w", err))
		}
		result.Replayed = true
		return result, nil
	}

	mv, err := s.ledger.FindMovementByReference(ctx, req.SenderID, *req.Reference)
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return nil, nil
	}

	senderBalance, err := s.ledger.Balance(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	receiverBalance, err := s.ledger.Balance(ctx, mv.Counterparty)
	if err != nil {
		return nil, err
	}
	return &ports.TipResult{
		MovementID:      mv.ID,
		SenderBalance:   senderBalance,
		ReceiverBalance: receiverBalance,
		Replayed:        true,
	}, nil
}

// cacheResult stores the outcome for replay detection (best-effort).
func (s *TransferServiceImpl) cacheResult(ctx context.Context, key string, result *ports.TipResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to marshal tip result for cache")
		return
	}
	if err := s.idempCache.Set(ctx, key, payload, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache tip result")
	}
}
