package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrWrongType is returned when a key holds a value of another kind.
var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

type entryKind int

const (
	kindHash entryKind = iota
	kindSet
	kindList
)

type memoryEntry struct {
	kind      entryKind
	hash      map[string]string
	set       map[string]struct{}
	list      []string
	expiresAt time.Time
}

// MemorySessionStore implements SessionStore in process memory.
// Expired keys are dropped lazily when they are next touched.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return NewMemorySessionStoreWithClock(time.Now)
}

// NewMemorySessionStoreWithClock creates an in-memory store that reads time from now.
func NewMemorySessionStoreWithClock(now func() time.Time) *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]*memoryEntry),
		now:     now,
	}
}

// live returns the entry at key unless it is missing or expired. Callers hold mu.
func (s *MemorySessionStore) live(key string) *memoryEntry {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return entry
}

// ensure returns the entry at key, creating one of the given kind. Callers hold mu.
func (s *MemorySessionStore) ensure(key string, kind entryKind) (*memoryEntry, error) {
	entry := s.live(key)
	if entry == nil {
		entry = &memoryEntry{kind: kind}
		switch kind {
		case kindHash:
			entry.hash = make(map[string]string)
		case kindSet:
			entry.set = make(map[string]struct{})
		}
		s.entries[key] = entry
		return entry, nil
	}
	if entry.kind != kind {
		return nil, ErrWrongType
	}
	return entry, nil
}

// Exists reports whether a key exists.
func (s *MemorySessionStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(key) != nil, nil
}

// HSet writes fields into the hash at key.
func (s *MemorySessionStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.ensure(key, kindHash)
	if err != nil {
		return err
	}
	for k, v := range fields {
		entry.hash[k] = v
	}
	return nil
}

// HGetAll returns a copy of the hash at key.
func (s *MemorySessionStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]string)
	entry := s.live(key)
	if entry == nil {
		return result, nil
	}
	if entry.kind != kindHash {
		return nil, ErrWrongType
	}
	for k, v := range entry.hash {
		result[k] = v
	}
	return result, nil
}

// SAdd adds members to the set at key.
func (s *MemorySessionStore) SAdd(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.ensure(key, kindSet)
	if err != nil {
		return err
	}
	for _, m := range members {
		entry.set[m] = struct{}{}
	}
	return nil
}

// SMembers returns the members of the set at key in sorted order.
func (s *MemorySessionStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		return []string{}, nil
	}
	if entry.kind != kindSet {
		return nil, ErrWrongType
	}

	members := make([]string, 0, len(entry.set))
	for m := range entry.set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

// SIsMember reports whether member is in the set at key.
func (s *MemorySessionStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		return false, nil
	}
	if entry.kind != kindSet {
		return false, ErrWrongType
	}
	_, ok := entry.set[member]
	return ok, nil
}

// RPush appends values to the list at key.
func (s *MemorySessionStore) RPush(_ context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.ensure(key, kindList)
	if err != nil {
		return err
	}
	entry.list = append(entry.list, values...)
	return nil
}

// LRange returns a copy of the list at key.
func (s *MemorySessionStore) LRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		return []string{}, nil
	}
	if entry.kind != kindList {
		return nil, ErrWrongType
	}
	return append([]string{}, entry.list...), nil
}

// Expire sets a time to live on key. A non-positive ttl deletes the key, as Redis does.
func (s *MemorySessionStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		return nil
	}
	if ttl <= 0 {
		delete(s.entries, key)
		return nil
	}
	entry.expiresAt = s.now().Add(ttl)
	return nil
}

// TTL returns the remaining time to live of key.
func (s *MemorySessionStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		return TTLMissing, nil
	}
	if entry.expiresAt.IsZero() {
		return TTLPersistent, nil
	}
	return entry.expiresAt.Sub(s.now()), nil
}

// Delete removes keys.
func (s *MemorySessionStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// ScanPrefix returns every live key starting with prefix in sorted order.
func (s *MemorySessionStore) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0)
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) && s.live(key) != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping always succeeds.
func (s *MemorySessionStore) Ping(context.Context) error {
	return nil
}

var (
	_ SessionStore = (*MemorySessionStore)(nil)
	_ SessionStore = (*RedisSessionStore)(nil)
)
