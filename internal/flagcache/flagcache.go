// Package flagcache keeps a Redis flag per submitted session. The flag is a
// UX fast path only: it lets upload and submit answer AlreadySubmitted before
// touching Postgres. The uniqueness constraint on submissions is the
// correctness mechanism; a cold or unreachable Redis just skips the shortcut.
package flagcache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

// New wraps client. A nil client yields a no-op cache, so deployments and
// tests without Redis behave identically minus the shortcut.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{Client: client, TTL: ttl}
}

const keyPrefix = "submitted_session:"

// MarkSubmitted records that sessionID has a committed submission. Errors are
// deliberately dropped: the flag is advisory.
func (c *Cache) MarkSubmitted(ctx context.Context, sessionID string) {
	if c == nil || c.Client == nil {
		return
	}
	_ = c.Client.SetNX(ctx, keyPrefix+sessionID, "1", c.TTL).Err()
}

// WasSubmitted reports whether the flag is set. False on any Redis error, so
// callers fall through to the storage check.
func (c *Cache) WasSubmitted(ctx context.Context, sessionID string) bool {
	if c == nil || c.Client == nil {
		return false
	}
	_, err := c.Client.Get(ctx, keyPrefix+sessionID).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		return false
	}
	return true
}
