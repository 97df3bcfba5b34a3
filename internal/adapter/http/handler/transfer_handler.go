package handler

import (
	"tipvault/internal/adapter/http/dto"
	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"
	"tipvault/pkg/apperror"
	"tipvault/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransferHandler handles internal balance transfers.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// SendTip handles POST /api/v1/tips.
func (h *TransferHandler) SendTip(c *gin.Context) {
	var req dto.TipSendRequest
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

	result, err := h.transferSvc.SendTip(c.Request.Context(), ports.TipRequest{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     amount,
		Reference:  req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.TipSendResponse{
		MovementID:      result.MovementID.String(),
		SenderBalance:   result.SenderBalance.String(),
		ReceiverBalance: result.ReceiverBalance.String(),
		Replayed:        result.Replayed,
	}
	if result.Replayed {
		response.OK(c, resp)
		return
	}
	response.Created(c, resp)
}
