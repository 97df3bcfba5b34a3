package handler

import (
	"tipvault/internal/adapter/http/dto"
	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"
	"tipvault/pkg/apperror"
	"tipvault/pkg/response"

	"github.com/gin-gonic/gin"
)

// WithdrawalHandler handles outbound payments.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Withdraw handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.withdrawalSvc.Withdraw(c.Request.Context(), ports.WithdrawalRequest{
		AccountID:          req.AccountID,
		DestinationAddress: req.DestinationAddress,
		Amount:             amount,
		Reference:          req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.WithdrawResponse{
		MovementID:  result.MovementID.String(),
		NewBalance:  result.NewBalance.String(),
		ProviderRef: result.ProviderRef,
		Replayed:    result.Replayed,
	}
	if result.Replayed {
		response.OK(c, resp)
		return
	}
	response.Created(c, resp)
}
