package apperror

import (
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

// ---- Authentication & Authorization (AUTH) ----

func ErrUnauthenticated() *AppError {
	return New("AUTH_001", "Missing or invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_003", "Insufficient permissions for this operation", http.StatusForbidden)
}

// ---- API Key Lifecycle (KEY) ----

func ErrKeyLimitExceeded() *AppError {
	return New("KEY_001", "Maximum of 5 active API keys allowed", http.StatusUnprocessableEntity)
}

func ErrKeyExpired() *AppError {
	return New("KEY_002", "API key has expired", http.StatusUnauthorized)
}

func ErrKeyNotFound() *AppError {
	return New("KEY_003", "API key not found", http.StatusNotFound)
}

func ErrInvalidDuration() *AppError {
	return New("KEY_004", "Invalid expiry duration, expected <integer><H|D|M|Y>", http.StatusBadRequest)
}

// ---- Wallet & Ledger (WAL) ----

func ErrInvalidAmount() *AppError {
	return New("WAL_001", "Amount must be positive", http.StatusBadRequest)
}

func ErrInsufficientBalance() *AppError {
	return New("WAL_002", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrWalletNotFound() *AppError {
	return New("WAL_003", "Wallet not found", http.StatusNotFound)
}

func ErrRecipientNotFound() *AppError {
	return New("WAL_004", "Recipient wallet not found", http.StatusNotFound)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_005", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrConflict(message string) *AppError {
	return New("WAL_006", message, http.StatusConflict)
}

// Validation returns a WAL_007 error for malformed input.
func Validation(message string) *AppError {
	return New("WAL_007", message, http.StatusBadRequest)
}

// ---- Webhook Settlement (WBH) ----

func ErrInvalidSignature() *AppError {
	return New("WBH_001", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an unexpected dependency failure as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrGatewayUnavailable wraps a payment gateway transport failure.
func ErrGatewayUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Payment gateway unavailable", http.StatusBadGateway, err)
}
