// Package cache provides a Redis-backed read cache for registry lookups so
// the hot assign path does not hit Postgres for every key existence check.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/keyward/keyward/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

type RedisKeyCache struct {
	client *redis.Client
}

func NewRedisKeyCache(addr string, password string, db int) *RedisKeyCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisKeyCache{client: rdb}
}

// NewRedisKeyCacheFromClient wraps an existing client; used by tests.
func NewRedisKeyCacheFromClient(client *redis.Client) *RedisKeyCache {
	return &RedisKeyCache{client: client}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("key:%d", id)
}

func (c *RedisKeyCache) GetKey(ctx context.Context, id int64) (*domain.Key, bool) {
	val, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var key domain.Key
	if err := json.Unmarshal(val, &key); err != nil {
		return nil, false
	}
	return &key, true
}

func (c *RedisKeyCache) SetKey(ctx context.Context, key *domain.Key, ttl time.Duration) {
	data, err := json.Marshal(key)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(key.ID), data, ttl)
}

func (c *RedisKeyCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, cacheKey(id)).Err()
}

func (c *RedisKeyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
