package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares the rate table across instances through Redis, so a
// multi-replica deployment fetches from the upstream API once per TTL
// instead of once per replica.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed rate cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "exchange:rates:"}
}

// Get returns the cached table for a base currency, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, base string) (map[string]float64, error) {
	data, err := c.client.Get(ctx, c.prefix+base).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rates map[string]float64
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, fmt.Errorf("decode cached rates: %w", err)
	}
	return rates, nil
}

// Set stores a rate table with the given TTL
func (c *RedisCache) Set(ctx context.Context, base string, rates map[string]float64, ttl time.Duration) error {
	data, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("encode rates: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+base, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ RateCache = (*RedisCache)(nil)
