package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New(KindInsufficientFunds, "LDG_003", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[LDG_003] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(KindInternal, "SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(KindInternal, "SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New(KindInvalidInput, "LDG_002", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestAppError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("withdraw: %w", ErrInsufficientFunds())

	assert.True(t, errors.Is(err, ErrInsufficientFunds()))
	assert.False(t, errors.Is(err, ErrInvalidAmount()))
}

func TestAsAndKindOf(t *testing.T) {
	wrapped := fmt.Errorf("deposit: %w", ErrProtocolPaused())

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "LDG_007", appErr.Code)
	assert.Equal(t, KindPaused, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	_, ok = As(errors.New("boom"))
	assert.False(t, ok)
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		kind       Kind
		httpStatus int
	}{
		{"InvalidSavingsRate", ErrInvalidSavingsRate(), "LDG_001", KindInvalidInput, 400},
		{"InvalidAmount", ErrInvalidAmount(), "LDG_002", KindInvalidInput, 400},
		{"InsufficientFunds", ErrInsufficientFunds(), "LDG_003", KindInsufficientFunds, 402},
		{"AccountNotActive", ErrAccountNotActive(), "LDG_004", KindInactiveAccount, 403},
		{"Unauthorized", ErrUnauthorized(), "LDG_005", KindUnauthorized, 403},
		{"Overflow", ErrOverflow(), "LDG_006", KindOverflow, 422},
		{"ProtocolPaused", ErrProtocolPaused(), "LDG_007", KindPaused, 503},
		{"TVLCapExceeded", ErrTVLCapExceeded(), "LDG_008", KindCapacityExceeded, 422},
		{"AllocationNotFound", ErrAllocationNotFound(), "LDG_009", KindCapacityExceeded, 404},
		{"InvalidAllocationName", ErrInvalidAllocationName(), "LDG_010", KindInvalidInput, 400},
		{"InvalidAllocationPercentage", ErrInvalidAllocationPercentage(), "LDG_011", KindInvalidInput, 400},
		{"AllocationLimitReached", ErrAllocationLimitReached(), "LDG_012", KindCapacityExceeded, 422},
		{"AccountNotFound", ErrAccountNotFound("User ledger"), "LDG_013", KindNotFound, 404},
		{"AlreadyInitialized", ErrAlreadyInitialized("Treasury"), "LDG_014", KindConflict, 409},
		{"ExchangeUnavailable", ErrExchangeUnavailable(), "LDG_015", KindUnavailable, 501},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSecurityErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidSigner", ErrInvalidSigner(), "SEC_001", 401},
		{"InvalidSignature", ErrInvalidSignature(), "SEC_002", 401},
		{"TimestampExpired", ErrTimestampExpired(), "SEC_003", 403},
		{"NonceUsed", ErrNonceUsed(), "SEC_004", 403},
		{"InvalidToken", ErrInvalidToken(), "SEC_005", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, KindUnauthorized, tt.err.Kind)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	lockErr := ErrLockTimeout(inner)
	assert.Equal(t, "SYS_002", lockErr.Code)
	assert.Equal(t, 503, lockErr.HTTPStatus)
}

func TestInternalError_KeepsCodedCause(t *testing.T) {
	plain := InternalError(fmt.Errorf("pg: connection closed"))
	assert.Equal(t, "SYS_001", plain.Code)
	assert.Equal(t, 500, plain.HTTPStatus)

	coded := InternalError(fmt.Errorf("update user ledger: %w", ErrOverflow()))
	assert.Equal(t, "LDG_006", coded.Code)
	assert.Equal(t, KindOverflow, coded.Kind)
	assert.Equal(t, 422, coded.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestEntityMessages(t *testing.T) {
	assert.Equal(t, "User ledger not found", ErrAccountNotFound("User ledger").Message)
	assert.Equal(t, "Treasury already initialized", ErrAlreadyInitialized("Treasury").Message)
}
