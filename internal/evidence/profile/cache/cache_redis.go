package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"qualifier/internal/evidence/profile"
	"qualifier/pkg/platform/sentinel"
)

const redisKeyPrefix = "qualifier:profile:"

// RedisCache persists evidence in Redis so repeated runs over the same
// dataset skip pages fetched recently.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed evidence cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Find loads cached evidence by URL.
//
// Errors: returns sentinel.ErrNotFound on cache miss; wraps Redis or JSON decode errors.
func (c *RedisCache) Find(ctx context.Context, url string) (*profile.Evidence, error) {
	data, err := c.client.Get(ctx, key(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile cache: %w", err)
	}

	var ev profile.Evidence
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode profile cache: %w", err)
	}
	return &ev, nil
}

// Save writes evidence with TTL eviction, overwriting any existing entry.
func (c *RedisCache) Save(ctx context.Context, url string, ev *profile.Evidence) error {
	if ev == nil {
		return fmt.Errorf("evidence is required")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode profile cache: %w", err)
	}
	if err := c.client.Set(ctx, key(url), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("save profile cache: %w", err)
	}
	return nil
}

func key(url string) string {
	return redisKeyPrefix + url
}

var _ profile.Cache = (*RedisCache)(nil)
