package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces replay cache entries.
const KeyPrefix = "idempotency:"

// IdempotencyCache implements ports.IdempotencyCache and ports.HealthChecker.
// Keys are "<account_id>:<idempotency_key>"; values are encoded
// idempotency records.
type IdempotencyCache struct {
	client goredis.UniversalClient
}

// NewIdempotencyCache creates a new Redis-backed replay cache.
func NewIdempotencyCache(client goredis.UniversalClient) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns the cached record, or nil, nil on a miss.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis replay cache get: %w", err)
	}
	return val, nil
}

// Set stores a record. A non-positive ttl keeps the entry until evicted.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, KeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis replay cache set: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (c *IdempotencyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Name returns the dependency name.
func (c *IdempotencyCache) Name() string {
	return "redis"
}
