package redis

import (
	"context"
	"fmt"
	"time"

	"auto-savings-vault/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// incrWindow bumps a window counter and arms its expiry on first use, in one round trip.
var incrWindow = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RateLimitStore implements ports.RateLimiter with fixed-window counters in Redis.
type RateLimitStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRateLimitStore creates a new Redis-backed rate limit store.
func NewRateLimitStore(client goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: "asv:ratelimit:",
		now:    time.Now,
	}
}

// Allow checks if a request is within the rate limit. Windows are aligned to
// multiples of window since the Unix epoch.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	if window < time.Second {
		window = time.Second
	}
	secs := int64(window / time.Second)
	windowID := s.now().Unix() / secs
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, windowID)

	// +1s keeps the key alive past the window edge
	ttl := (window + time.Second).Milliseconds()
	count, err := incrWindow.Run(ctx, s.client, []string{redisKey}, ttl).Int64()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   (windowID + 1) * secs,
	}, nil
}
