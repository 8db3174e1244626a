// Package ratelimit limits requests per client key, in process or across
// replicas through Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultKeyPrefix = "waitlist:ratelimit:"

type Logger interface {
	Error(msg string, args ...interface{})
}

// RateLimiter defines the strategy interface for rate limiting
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	Redis     *redis.Client // Optional, if nil uses in-memory
	KeyPrefix string        // Redis only; defaults to DefaultKeyPrefix
	Logger    Logger        // Optional logger for Redis operations
}

// NewRateLimiter creates a rate limiter based on configuration
func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		limiter := NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger)
		if config.KeyPrefix != "" {
			limiter.keyPrefix = config.KeyPrefix
		}
		return limiter
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
