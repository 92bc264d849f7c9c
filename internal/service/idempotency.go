package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// replayGuard implements the two-layer idempotency check: the cache first,
// then the idempotency log inside the unit of work. An empty key disables it.
type replayGuard struct {
	cache ports.IdempotencyCache
	log   zerolog.Logger
}

// cached returns a previously stored result from the fast path.
func (g replayGuard) cached(ctx context.Context, key string) *ports.MovementResult {
	if key == "" || g.cache == nil {
		return nil
	}
	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		return nil
	}
	if raw == nil {
		return nil
	}
	var res ports.MovementResult
	if err := json.Unmarshal(raw, &res); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached response")
		return nil
	}
	return &res
}

// logged returns a previously stored result from the idempotency log.
func (g replayGuard) logged(ctx context.Context, tx ports.LedgerTx, key string) (*ports.MovementResult, error) {
	if key == "" {
		return nil, nil
	}
	entry, err := tx.Idempotency().Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if entry == nil {
		return nil, nil
	}
	var res ports.MovementResult
	if err := json.Unmarshal(entry.ResponseJSON, &res); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached response: %w", err))
	}
	return &res, nil
}

// record stores res in the idempotency log and returns its encoding.
func (g replayGuard) record(ctx context.Context, tx ports.LedgerTx, key string, res *ports.MovementResult, now time.Time) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	respJSON, err := json.Marshal(res)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	entryID := uuid.Nil
	if len(res.Entries) > 0 {
		entryID = res.Entries[0].ID
	}
	logEntry := &domain.IdempotencyLog{
		Key:          key,
		EntryID:      entryID,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}
	if err := tx.Idempotency().Create(ctx, logEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}
	return respJSON, nil
}

// remember caches the encoded result (best-effort).
func (g replayGuard) remember(ctx context.Context, key string, respJSON []byte) {
	if key == "" || g.cache == nil || respJSON == nil {
		return
	}
	if err := g.cache.Set(ctx, key, respJSON, idempotencyTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func idempotencyKey(req ports.AmountRequest, op domain.Operation) string {
	if req.ReferenceID == "" {
		return ""
	}
	return domain.BuildIdempotencyKey(req.Owner, op, req.ReferenceID)
}
