package memory

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// IdempotencyCache is a process-local ports.IdempotencyCache used when no
// redis is configured.
type IdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewIdempotencyCache creates an empty cache.
func NewIdempotencyCache() *IdempotencyCache {
	return &IdempotencyCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *IdempotencyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	return e.value, nil
}

func (c *IdempotencyCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}
	return nil
}

// NonceStore is a process-local ports.NonceStore used when no redis is configured.
type NonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
	now    func() time.Time
}

// NewNonceStore creates an empty nonce store.
func NewNonceStore() *NonceStore {
	return &NonceStore{nonces: make(map[string]time.Time), now: time.Now}
}

func (s *NonceStore) CheckAndSet(_ context.Context, signer string, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := signer + ":" + nonce
	now := s.now()
	if exp, ok := s.nonces[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.nonces[key] = now.Add(ttl)
	return true, nil
}
