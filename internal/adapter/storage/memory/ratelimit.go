package memory

import (
	"context"
	"sync"
	"time"

	"auto-savings-vault/internal/core/ports"

	"golang.org/x/time/rate"
)

// RateLimiter is a process-local ports.RateLimiter. Each key gets a token
// bucket refilled at limit/window with a burst of limit.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	now     func() time.Time
}

// NewRateLimiter creates an empty limiter set.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rate.Limiter), now: time.Now}
}

func (r *RateLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	if limit < 1 {
		limit = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	lim, ok := r.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(window/time.Duration(limit)), int(limit))
		r.buckets[key] = lim
	}

	now := r.now()
	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	remaining := int64(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// Time until one token is back in the bucket.
	reset := now
	if tokens < 1 {
		reset = now.Add(time.Duration((1 - tokens) * float64(window) / float64(limit)))
	}
	return &ports.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   reset.Unix(),
	}, nil
}
