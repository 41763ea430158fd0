// Package repository provides data access for the SecureTransfer application.
//
// Online sessions live in a key-value store behind the SessionStore
// interface, implemented over Redis for production and in memory for tests
// and single-process development. The optional SQL event history is served
// by SessionEventRepository.
package repository

import (
	"context"
	"time"
)

// TTL results for keys that have no expiry or do not exist, matching Redis.
const (
	TTLPersistent time.Duration = -1
	TTLMissing    time.Duration = -2
)

// SessionStore is the subset of key-value operations the session engines need.
// Each operation is atomic on its own; there are no cross-key transactions.
type SessionStore interface {
	// Exists reports whether a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// HSet writes fields into the hash at key, creating it if needed.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// HGetAll returns the hash at key, or an empty map if it does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns the members of the set at key in sorted order.
	SMembers(ctx context.Context, key string) ([]string, error)

	// SIsMember reports whether member is in the set at key.
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// RPush appends values to the list at key.
	RPush(ctx context.Context, key string, values ...string) error

	// LRange returns the whole list at key in append order.
	LRange(ctx context.Context, key string) ([]string, error)

	// Expire sets a time to live on key. A missing key is ignored.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining time to live of key, TTLPersistent if it has
	// none, or TTLMissing if the key does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// ScanPrefix returns every key starting with prefix.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
