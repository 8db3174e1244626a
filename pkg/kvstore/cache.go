package kvstore

import (
	"context"
	"time"
)

// Cache is the subset of the application cache used for slots.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// CacheStore keeps slots in the application cache (Redis) without expiry.
type CacheStore struct {
	cache  Cache
	prefix string
}

func NewCacheStore(cache Cache, prefix string) *CacheStore {
	return &CacheStore{cache: cache, prefix: prefix}
}

func (c *CacheStore) Get(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return c.cache.Get(ctx, c.prefix+key)
}

func (c *CacheStore) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return c.cache.Set(ctx, c.prefix+key, value, 0)
}
