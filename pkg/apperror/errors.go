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

// ---- Security & Authentication (SEC) ----

func ErrMissingAPIKey() *AppError {
	return New("SEC_001", "Missing API key", http.StatusUnauthorized)
}

func ErrInvalidAPIKey() *AppError {
	return New("SEC_002", "Invalid API key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_003", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- Payment Business Logic (PAY) ----

func ErrPaymentNotFound(paymentID string) *AppError {
	return New("PAY_001", fmt.Sprintf("Payment not found: %s", paymentID), http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Amount must be positive", http.StatusBadRequest)
}

func ErrInvalidStatusTransition(from, to string) *AppError {
	return New("PAY_003", fmt.Sprintf("Illegal status transition from %s to %s", from, to), http.StatusConflict)
}

// ---- Idempotency (IDEM) ----

// ErrIdempotencyConflict signals a reused idempotency key with a different
// request fingerprint.
func ErrIdempotencyConflict() *AppError {
	return New("IDEM_001", "Idempotency key reused with a different request body", http.StatusConflict)
}

func ErrMissingIdempotencyKey() *AppError {
	return New("IDEM_002", "Missing Idempotency-Key header", http.StatusBadRequest)
}

// ---- Webhooks (WBH) ----

func ErrUnknownEvent(event string) *AppError {
	return New("WBH_001", fmt.Sprintf("Unknown event type: %s", event), http.StatusBadRequest)
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

// Validation returns a VAL_001 error for malformed input.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
