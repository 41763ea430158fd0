// Package ratelimit provides rate limiting for the session join endpoints.
// It implements the token bucket algorithm with configurable rates and capacities.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket for a single client identity.
// Tokens are added at a fixed rate and each request consumes one.
type Limiter struct {
	tokens     float64
	lastTime   time.Time
	lastAccess time.Time
	rate       float64
	capacity   float64
	now        func() time.Time
	mu         sync.Mutex
}

// Rate controls how many requests per second are allowed
type Rate struct {
	// RequestsPerSecond defines how many tokens are added per second
	RequestsPerSecond float64

	// Burst defines the maximum size of the token bucket
	Burst int
}

// NewLimiter creates a new rate limiter with the specified rate and burst capacity.
//
// Parameters:
//   - rate: The number of tokens per second to add to the bucket
//   - burst: The maximum capacity of the bucket
//
// Returns:
//   - A configured rate limiter
func NewLimiter(rate float64, burst int) *Limiter {
	return newLimiterWithClock(rate, burst, time.Now)
}

func newLimiterWithClock(rate float64, burst int, now func() time.Time) *Limiter {
	t := now()
	return &Limiter{
		tokens:     float64(burst),
		lastTime:   t,
		lastAccess: t,
		rate:       rate,
		capacity:   float64(burst),
		now:        now,
	}
}

// Allow reports whether a request may proceed, consuming a token if so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(l.lastTime).Seconds()
	l.lastTime = now
	l.lastAccess = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}

	if l.tokens < 1 {
		return false
	}

	l.tokens--
	return true
}

// RetryAfter estimates how long until the next token is available.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tokens >= 1 || l.rate <= 0 {
		return 0
	}
	missing := 1 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second))
}

// idleSince returns the time of the last Allow call.
func (l *Limiter) idleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastAccess
}
