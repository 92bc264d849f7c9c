package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes by the class of failure.
type Kind string

const (
	KindInvalidInput      Kind = "InvalidInput"
	KindUnauthorized      Kind = "Unauthorized"
	KindInactiveAccount   Kind = "InactiveAccount"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindOverflow          Kind = "Overflow"
	KindCapacityExceeded  Kind = "CapacityExceeded"
	KindPaused            Kind = "Paused"
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindUnavailable       Kind = "Unavailable"
	KindInternal          Kind = "Internal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Kind       Kind   `json:"kind"`
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

// Is matches any AppError carrying the same code, so callers can write
// errors.Is(err, apperror.ErrInsufficientFunds()).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New creates a new AppError.
func New(kind Kind, code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// As extracts the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// ---- Ledger (LDG) ----

func ErrInvalidSavingsRate() *AppError {
	return New(KindInvalidInput, "LDG_001", "Savings rate must be between 1 and 90", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(KindInvalidInput, "LDG_002", "Amount must be greater than 0", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New(KindInsufficientFunds, "LDG_003", "Insufficient funds in vault", http.StatusPaymentRequired)
}

func ErrAccountNotActive() *AppError {
	return New(KindInactiveAccount, "LDG_004", "Account is not active", http.StatusForbidden)
}

func ErrUnauthorized() *AppError {
	return New(KindUnauthorized, "LDG_005", "Unauthorized access", http.StatusForbidden)
}

func ErrOverflow() *AppError {
	return New(KindOverflow, "LDG_006", "Arithmetic overflow", http.StatusUnprocessableEntity)
}

func ErrProtocolPaused() *AppError {
	return New(KindPaused, "LDG_007", "Protocol is paused", http.StatusServiceUnavailable)
}

func ErrTVLCapExceeded() *AppError {
	return New(KindCapacityExceeded, "LDG_008", "TVL cap exceeded", http.StatusUnprocessableEntity)
}

func ErrAllocationNotFound() *AppError {
	return New(KindCapacityExceeded, "LDG_009", "Allocation not found", http.StatusNotFound)
}

func ErrInvalidAllocationName() *AppError {
	return New(KindInvalidInput, "LDG_010", "Allocation name must be 1 to 32 bytes", http.StatusBadRequest)
}

func ErrInvalidAllocationPercentage() *AppError {
	return New(KindInvalidInput, "LDG_011", "Allocation percentage must be between 1 and 100", http.StatusBadRequest)
}

func ErrAllocationLimitReached() *AppError {
	return New(KindCapacityExceeded, "LDG_012", "Allocation limit reached", http.StatusUnprocessableEntity)
}

func ErrAccountNotFound(entity string) *AppError {
	return New(KindNotFound, "LDG_013", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyInitialized(entity string) *AppError {
	return New(KindConflict, "LDG_014", fmt.Sprintf("%s already initialized", entity), http.StatusConflict)
}

func ErrExchangeUnavailable() *AppError {
	return New(KindUnavailable, "LDG_015", "Exchange integration is not available", http.StatusNotImplemented)
}

// ---- Security & Authentication (SEC) ----

func ErrInvalidSigner() *AppError {
	return New(KindUnauthorized, "SEC_001", "Invalid signer", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New(KindUnauthorized, "SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New(KindUnauthorized, "SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New(KindUnauthorized, "SEC_004", "Nonce has already been used", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New(KindUnauthorized, "SEC_005", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(KindUnavailable, "RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap(KindInternal, "SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap(KindInternal, "SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error. An error that
// already carries a code keeps it.
func InternalError(err error) *AppError {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Wrap(KindInternal, "SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(KindInvalidInput, "REQ_001", message, http.StatusBadRequest)
}
