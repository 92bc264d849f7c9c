package postgres

import (
	"context"
	"errors"
	"fmt"

	"auto-savings-vault/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	db DBTX
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(db DBTX) *IdempotencyRepo {
	return &IdempotencyRepo{db: db}
}

// Create inserts an idempotency log in the same transaction as the movement it records.
func (r *IdempotencyRepo) Create(ctx context.Context, log *domain.IdempotencyLog) error {
	query := `INSERT INTO idempotency_logs (key, entry_id, response_json, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, log.Key, log.EntryID, log.ResponseJSON, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert idempotency log: %w", err)
	}
	return nil
}

// Get fetches an idempotency log by key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	query := `SELECT key, entry_id, response_json, created_at FROM idempotency_logs WHERE key = $1`

	log := &domain.IdempotencyLog{}
	err := r.db.QueryRow(ctx, query, key).Scan(&log.Key, &log.EntryID, &log.ResponseJSON, &log.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency log: %w", err)
	}
	return log, nil
}
