package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	emptyKey      = "__empty__"
	sweepInterval = 1024
)

// InMemoryRateLimiter implements token bucket rate limiting for single instances
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	ops      uint64
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		now:      time.Now,
		limiters: make(map[string]*keyedLimiter),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = emptyKey
	}

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.limiters[key]
	if !ok {
		k = &keyedLimiter{limiter: rate.NewLimiter(r.refillRate(), r.requests)}
		r.limiters[key] = k
	}
	k.lastSeen = now

	r.ops++
	if r.ops%sweepInterval == 0 {
		r.sweep(now)
	}

	return !k.limiter.AllowN(now, 1), nil
}

// Size reports how many client keys are currently tracked.
func (r *InMemoryRateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

func (r *InMemoryRateLimiter) refillRate() rate.Limit {
	if r.window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(r.requests) / r.window.Seconds())
}

// sweep drops keys idle for two full windows. Caller holds r.mu.
func (r *InMemoryRateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-2 * r.window)
	for key, k := range r.limiters {
		if k.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
}
