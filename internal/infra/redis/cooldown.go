package redis

import (
	"context"
	"fmt"
	"time"
)

// Reserve claims key for ttl. When the key is already held it returns ok=false
// and the time left until it frees up.
func (c *Client) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	k := c.cooldownKey(key)
	ok, err := c.rdb.SetNX(ctx, k, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("setnx failed: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	left, err := c.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("pttl failed: %w", err)
	}
	// go-redis reports -2 (key gone) and -1 (no expiry) as raw durations
	switch left {
	case -2:
		return c.Reserve(ctx, key, ttl)
	case -1:
		left = ttl
	}
	return false, left, nil
}

// Release drops a reservation so the key can be claimed again.
func (c *Client) Release(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.cooldownKey(key)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
