package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCategory is used when no category-specific rate is registered.
const DefaultCategory = "default"

// Store manages rate limiters for multiple clients across categories.
// A client gets an independent bucket per category, so exhausting the
// LAN join budget does not affect online joins.
type Store struct {
	limiters map[string]*Limiter
	rates    map[string]Rate
	mu       sync.RWMutex

	cleanupInterval time.Duration
	idleTTL         time.Duration
	now             func() time.Time
}

// NewStore creates a new store for managing rate limiters.
//
// Parameters:
//   - defaultRate: The default rate limit for clients
//   - cleanupInterval: How often Run evicts idle limiters
//
// Returns:
//   - A configured limiter store
func NewStore(defaultRate Rate, cleanupInterval time.Duration) *Store {
	return &Store{
		limiters:        make(map[string]*Limiter),
		rates:           map[string]Rate{DefaultCategory: defaultRate},
		cleanupInterval: cleanupInterval,
		idleTTL:         cleanupInterval,
		now:             time.Now,
	}
}

func limiterKey(category, clientID string) string {
	return category + "|" + clientID
}

// GetLimiter returns the limiter for a client in a category, creating it on first use.
//
// Parameters:
//   - clientID: The unique identifier for the client (e.g., IP address)
//   - category: The endpoint group the limit applies to (e.g., "lan_join")
//
// Returns:
//   - A rate limiter for the client
func (s *Store) GetLimiter(clientID string, category string) *Limiter {
	key := limiterKey(category, clientID)

	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()
	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it while we waited for the lock
	if limiter, exists = s.limiters[key]; exists {
		return limiter
	}

	rate, ok := s.rates[category]
	if !ok {
		rate = s.rates[DefaultCategory]
	}

	limiter = newLimiterWithClock(rate.RequestsPerSecond, rate.Burst, s.now)
	s.limiters[key] = limiter
	return limiter
}

// SetRate sets a rate limit for a specific category.
func (s *Store) SetRate(category string, rate Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[category] = rate
}

// Len returns the number of tracked limiters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// Run evicts idle limiters every cleanup interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes limiters that have not been used for idleTTL.
func (s *Store) cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, limiter := range s.limiters {
		if limiter.idleSince().Before(cutoff) {
			delete(s.limiters, key)
			removed++
		}
	}

	if removed > 0 {
		log.Debug().
			Int("removed", removed).
			Int("remaining", len(s.limiters)).
			Msg("Evicted idle rate limiters")
	}
}
