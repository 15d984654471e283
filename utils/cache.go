package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PasteBox/model"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis cache client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

// Get reads a cached value.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// Set writes a cached value.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, string(data), expiration).Err()
}

// Delete removes a cache entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// BuildCacheKey builds a cache key.
func BuildCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += fmt.Sprintf(":%v", param)
	}
	return key
}

const CacheKeyShortCode = "file:code"

// ShortCodeCache keeps short code -> record id mappings in a Cache.
type ShortCodeCache struct {
	cache Cache
	ttl   time.Duration
}

// NewShortCodeCache wraps cache. Entries live for ttl.
func NewShortCodeCache(cache Cache, ttl time.Duration) *ShortCodeCache {
	return &ShortCodeCache{cache: cache, ttl: ttl}
}

// GetID returns the cached record id for a code.
func (s *ShortCodeCache) GetID(ctx context.Context, kind model.OwnerKind, code string) (string, bool) {
	var id string
	if err := s.cache.Get(ctx, BuildCacheKey(CacheKeyShortCode, kind.Namespace(), code), &id); err != nil {
		return "", false
	}
	return id, id != ""
}

// SetID caches a code mapping.
func (s *ShortCodeCache) SetID(ctx context.Context, kind model.OwnerKind, code, id string) error {
	return s.cache.Set(ctx, BuildCacheKey(CacheKeyShortCode, kind.Namespace(), code), id, s.ttl)
}

// Forget drops a code mapping. A missing key is not an error.
func (s *ShortCodeCache) Forget(ctx context.Context, kind model.OwnerKind, code string) error {
	err := s.cache.Delete(ctx, BuildCacheKey(CacheKeyShortCode, kind.Namespace(), code))
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
