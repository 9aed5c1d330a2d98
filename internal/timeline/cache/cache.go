// Package cache holds a redis-backed read-through cache for each
// identity's current iteration, the hottest lookup in SCD workloads.
// Entries are TTL-bounded and explicitly invalidated by every mutating
// operation on the identity; the engine works identically without a cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tempus/internal/timeline"
)

const currentKeyPrefix = "tempus:current:"

// DefaultTTL bounds staleness if an invalidation is lost (e.g. a crash
// between commit and DEL).
const DefaultTTL = 5 * time.Minute

// Cache wraps a redis client for current-iteration lookups.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func currentKey(identity string) string {
	return currentKeyPrefix + identity
}

// GetCurrent returns the cached current iteration for identity, or
// (nil, false) on a miss. Errors degrade to a miss; the store remains the
// source of truth.
func (c *Cache) GetCurrent(ctx context.Context, identity string) (*timeline.Iteration, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, currentKey(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get current %q: %w", identity, err)
	}
	var it timeline.Iteration
	if err := json.Unmarshal(raw, &it); err != nil {
		// A corrupt entry is a miss; drop it so it cannot recur.
		_ = c.client.Del(ctx, currentKey(identity)).Err()
		return nil, false, nil
	}
	return &it, true, nil
}

// SetCurrent stores the current iteration for its identity.
func (c *Cache) SetCurrent(ctx context.Context, it *timeline.Iteration) error {
	if c == nil || it == nil {
		return nil
	}
	payload, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("cache marshal iteration: %w", err)
	}
	if err := c.client.Set(ctx, currentKey(it.Identity), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set current %q: %w", it.Identity, err)
	}
	return nil
}

// Invalidate drops the cached entry for identity. Called after every
// mutating operation touching that identity.
func (c *Cache) Invalidate(ctx context.Context, identity string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, currentKey(identity)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %q: %w", identity, err)
	}
	return nil
}
