package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl := NewRateLimiter()
	clock := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := rl.Allow(ctx, "signer:movement", 3, 3*time.Second)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, int64(2-i), res.Remaining)
	}

	res, err := rl.Allow(ctx, "signer:movement", 3, 3*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, clock.Add(time.Second).Unix(), res.ResetAt)

	// One token per second.
	clock = clock.Add(time.Second)
	res, err = rl.Allow(ctx, "signer:movement", 3, 3*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter()
	ctx := context.Background()

	res, err := rl.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	res, err = rl.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = rl.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
