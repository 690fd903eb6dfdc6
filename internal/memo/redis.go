package memo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"repurchase-lab/internal/domain"
)

const keyPrefix = "repurchase:run:"

// RedisCache shares computed runs across processes: several dashboard
// consumers re-requesting the same snapshot hit one stored result.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects and verifies the Redis backend. ttl bounds how
// long a cached run outlives its computation; 0 keeps results until
// evicted.
func NewRedisCache(ctx context.Context, addr, password string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Compile-time interface check.
var _ Cache = (*RedisCache)(nil)

// Get returns the cached result for a snapshot, or ok=false on miss.
func (c *RedisCache) Get(ctx context.Context, snapshotID string) (*domain.RunResult, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+snapshotID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached run: %w", err)
	}

	var result domain.RunResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode cached run: %w", err)
	}
	return &result, true, nil
}

// Set stores a result under its own SnapshotID.
func (c *RedisCache) Set(ctx context.Context, result *domain.RunResult) error {
	if result == nil || result.SnapshotID == "" {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+result.SnapshotID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
