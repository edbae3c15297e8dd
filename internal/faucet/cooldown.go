package faucet

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cooldown tracks which recipients are still inside their claim window.
type Cooldown interface {
	// Reserve claims key for ttl. ok is false while an earlier reservation is live,
	// in which case retryAfter is the time left on it.
	Reserve(ctx context.Context, key string, ttl time.Duration) (ok bool, retryAfter time.Duration, err error)

	// Release drops a reservation.
	Release(ctx context.Context, key string) error
}

// MemoryCooldown is a process-local Cooldown backed by an expiring LRU.
// Entries past capacity are evicted oldest first, which re-opens their window early.
type MemoryCooldown struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, time.Time]
	now   func() time.Time
}

// NewMemoryCooldown tracks up to size recipients, each for at most maxTTL.
func NewMemoryCooldown(size int, maxTTL time.Duration) *MemoryCooldown {
	return &MemoryCooldown{
		cache: expirable.NewLRU[string, time.Time](size, nil, maxTTL),
		now:   time.Now,
	}
}

func (c *MemoryCooldown) Reserve(_ context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.cache.Peek(key); ok && now.Before(until) {
		return false, until.Sub(now), nil
	}
	c.cache.Add(key, now.Add(ttl))
	return true, 0, nil
}

func (c *MemoryCooldown) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key)
	return nil
}
