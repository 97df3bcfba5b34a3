package handler

import (
	"net/http"
	"strconv"
	"time"

	"tipvault/internal/adapter/http/dto"
	"tipvault/internal/core/domain"
	"tipvault/internal/core/ports"
	"tipvault/pkg/apperror"
	"tipvault/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultMovementLimit = 20
	maxMovementLimit     = 100
)

// AccountHandler handles deposit- and account-facing endpoints.
type AccountHandler struct {
	depositSvc ports.DepositService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(depositSvc ports.DepositService) *AccountHandler {
	return &AccountHandler{depositSvc: depositSvc}
}

// OpenDeposit handles POST /api/v1/accounts/:id/deposit.
func (h *AccountHandler) OpenDeposit(c *gin.Context) {
	accountID, ok := pathAccountID(c)
	if !ok {
		return
	}

	address, err := h.depositSvc.OpenDeposit(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositOpenResponse{
		AccountID: accountID,
		Address:   address,
	})
}

// CheckDeposit handles POST /api/v1/accounts/:id/deposit/check.
func (h *AccountHandler) CheckDeposit(c *gin.Context) {
	accountID, ok := pathAccountID(c)
	if !ok {
		return
	}

	result, err := h.depositSvc.CheckDeposit(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositCheckResponse{
		Address:    result.Address,
		Credited:   result.Credited,
		CreditedBy: result.CreditedBy.String(),
		NewBalance: result.NewBalance.String(),
	})
}

// GetBalance handles GET /api/v1/accounts/:id/balance.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	accountID, ok := pathAccountID(c)
	if !ok {
		return
	}

	balance, err := h.depositSvc.Balance(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID: accountID,
		Balance:   balance.String(),
		BaseUnits: int64(balance),
	})
}

// ListMovements handles GET /api/v1/accounts/:id/movements.
func (h *AccountHandler) ListMovements(c *gin.Context) {
	accountID, ok := pathAccountID(c)
	if !ok {
		return
	}

	limit := defaultMovementLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		if n > maxMovementLimit {
			n = maxMovementLimit
		}
		limit = n
	}

	movements, err := h.depositSvc.Movements(c.Request.Context(), accountID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		items = append(items, toMovementResponse(&movements[i]))
	}
	response.OK(c, dto.MovementListResponse{
		AccountID: accountID,
		Items:     items,
	})
}

// HealthCheck handles GET /health, verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}

// pathAccountID extracts and validates the :id path parameter, writing the
// error response itself when invalid.
func pathAccountID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !dto.ValidID(id) {
		response.Error(c, apperror.Validation("invalid account id"))
		return "", false
	}
	return id, true
}

func toMovementResponse(m *domain.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:           m.ID.String(),
		Kind:         string(m.Kind),
		Status:       string(m.Status),
		Amount:       m.Amount.String(),
		Counterparty: m.Counterparty,
		Reference:    m.Reference,
		ProviderRef:  m.ProviderRef,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
