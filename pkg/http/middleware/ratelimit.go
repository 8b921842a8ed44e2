package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a token bucket per key. Buckets idle long enough to have
// refilled completely are evicted.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*bucket
	rate      float64 // tokens per second
	capacity  float64
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter allows rps requests per second per key with bursts up to burst.
func NewLimiter(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	idle := time.Minute
	if rps > 0 {
		if full := time.Duration(float64(burst) / rps * float64(time.Second)); full > idle {
			idle = full
		}
	}
	return &Limiter{
		m:        make(map[string]*bucket),
		rate:     rps,
		capacity: float64(burst),
		idle:     idle,
		now:      time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idle {
		for k, b := range l.m {
			if now.Sub(b.last) > l.idle {
				delete(l.m, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// RateLimit rejects requests over the per client IP limit with deny.
// Requests for which skip returns true are not counted.
func RateLimit(l *Limiter, skip func(echo.Context) bool, deny echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}
			if !l.Allow(c.RealIP()) {
				return deny(c)
			}
			return next(c)
		}
	}
}
