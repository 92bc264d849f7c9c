package postgres

import (
	"context"
	"testing"
	"time"

	"auto-savings-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	log := &domain.IdempotencyLog{
		Key:          "owner:DEPOSIT:REF-001",
		EntryID:      uuid.New(),
		ResponseJSON: []byte(`{"operation":"DEPOSIT"}`),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_logs").
		WithArgs(log.Key, log.EntryID, log.ResponseJSON, log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = NewIdempotencyRepo(tx).Create(context.Background(), log)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entryID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM idempotency_logs WHERE key").
		WithArgs("owner:DEPOSIT:REF-001").
		WillReturnRows(pgxmock.NewRows([]string{"key", "entry_id", "response_json", "created_at"}).
			AddRow("owner:DEPOSIT:REF-001", entryID, []byte(`{"operation":"DEPOSIT"}`), now))

	result, err := NewIdempotencyRepo(mock).Get(context.Background(), "owner:DEPOSIT:REF-001")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, entryID, result.EntryID)
	assert.Equal(t, []byte(`{"operation":"DEPOSIT"}`), result.ResponseJSON)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM idempotency_logs WHERE key").
		WithArgs("nonexistent-key").
		WillReturnRows(pgxmock.NewRows([]string{"key", "entry_id", "response_json", "created_at"}))

	result, err := NewIdempotencyRepo(mock).Get(context.Background(), "nonexistent-key")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
