// Package ratelimit provides the core.RateLimiter implementations.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/academia/core"
)

// TokenBucket is an in-process limiter: each key holds up to `capacity` tokens,
// refilled at `perMinute` tokens per minute.
type TokenBucket struct {
	capacity  int
	perMinute int
	mu        sync.Mutex
	state     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

var _ core.RateLimiter = (*TokenBucket)(nil)

func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity:  capacity,
		perMinute: perMinute,
		state:     make(map[string]*bucket),
	}
}

func (l *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := core.NowFunc()
	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: float64(l.capacity - 1), last: now}
		return true, nil
	}

	refill := now.Sub(b.last).Minutes() * float64(l.perMinute)
	b.tokens += refill
	if b.tokens > float64(l.capacity) {
		b.tokens = float64(l.capacity)
	}
	b.last = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}
