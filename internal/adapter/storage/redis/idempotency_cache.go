package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paylite-payment-service/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis.
// Entries expire; PostgreSQL stays the source of truth, so an expired
// entry only costs a fallthrough read.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Get retrieves a cached entry by idempotency key.
// Returns nil, nil if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (*ports.CachedResponse, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}

	entry := &ports.CachedResponse{}
	if err := json.Unmarshal(val, entry); err != nil {
		return nil, fmt.Errorf("redis idempotency decode: %w", err)
	}
	return entry, nil
}

// Set stores an entry in the idempotency cache with TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, entry *ports.CachedResponse, ttl time.Duration) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis idempotency encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
