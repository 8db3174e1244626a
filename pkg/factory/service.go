// Package factory builds per-route collaborators that share one
// configuration, such as rate limiters.
package factory

import (
	"context"
	"time"

	"github.com/akeren/waitlist-foundry/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   ratelimit.Logger
}

// RateLimiterFactory hands out one limiter per scope. Limiters of different
// scopes never share a budget, even when backed by the same Redis.
type RateLimiterFactory interface {
	CreateRateLimiter(scope string) ratelimit.RateLimiter
}

type DefaultRateLimiterFactory struct {
	base ratelimit.RateLimitConfig
}

func NewDefaultRateLimiterFactory(config *RateLimitConfig, cache Cache) *DefaultRateLimiterFactory {
	base := ratelimit.RateLimitConfig{
		Requests: config.Requests,
		Window:   config.Window,
		Logger:   config.Logger,
	}
	if provider, ok := cache.(RedisClientProvider); ok {
		base.Redis = provider.GetClient()
	}
	return &DefaultRateLimiterFactory{base: base}
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter(scope string) ratelimit.RateLimiter {
	cfg := f.base
	cfg.KeyPrefix = ScopedKeyPrefix(scope)
	return ratelimit.NewRateLimiter(&cfg)
}

// ScopedKeyPrefix is the Redis key prefix used for scope.
func ScopedKeyPrefix(scope string) string {
	if scope == "" {
		return ratelimit.DefaultKeyPrefix
	}
	return ratelimit.DefaultKeyPrefix + scope + ":"
}

type FactoryContainer struct {
	RateLimiterFactory RateLimiterFactory
}

// NewFactoryContainer backs limiters with Redis when cache exposes a client
// and falls back to in-memory limiters otherwise.
func NewFactoryContainer(rateLimitConfig *RateLimitConfig, cache Cache) *FactoryContainer {
	return &FactoryContainer{
		RateLimiterFactory: NewDefaultRateLimiterFactory(rateLimitConfig, cache),
	}
}
