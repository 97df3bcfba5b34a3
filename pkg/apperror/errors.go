package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code extracts the AppError code from err, or "" if err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Ledger Business Logic (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Invalid amount", http.StatusBadRequest)
}

func ErrUnknownAccount() *AppError {
	return New("LED_003", "Unknown account", http.StatusNotFound)
}

func ErrSelfTransfer() *AppError {
	return New("LED_004", "Cannot transfer to the same account", http.StatusBadRequest)
}

// ---- Custody Provider (PRV) ----

func ErrProviderUnavailable(err error) *AppError {
	return Wrap("PRV_001", "Custody provider unavailable, try again later", http.StatusBadGateway, err)
}

func ErrProviderTimeout(err error) *AppError {
	return Wrap("PRV_002", "Custody provider timed out", http.StatusGatewayTimeout, err)
}

func ErrProviderRejected(message string) *AppError {
	return New("PRV_003", fmt.Sprintf("Custody provider rejected the request: %s", message), http.StatusUnprocessableEntity)
}

// ErrAmbiguousPaymentOutcome marks a withdrawal whose payment submission timed
// out after the local debit. The debit stands and the movement is flagged for
// manual reconciliation; it is never auto-credited back.
func ErrAmbiguousPaymentOutcome(err error) *AppError {
	return Wrap("PRV_004", "Payment outcome unknown, withdrawal held for manual reconciliation", http.StatusAccepted, err)
}

// ---- Security (SEC) ----

func ErrInvalidAPIKey() *AppError {
	return New("SEC_001", "Invalid API key", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_002-style validation error with a specific message.
func Validation(message string) *AppError {
	return New("LED_002", message, http.StatusBadRequest)
}
