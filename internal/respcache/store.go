// Package respcache provides TTL-bounded caching of JSON response bodies for
// idempotent GET endpoints.
//
// The package splits into a Store (a process-wide map from normalized request
// key to cached payload and expiry) and a Middleware that consults the store
// before the handler runs and populates it afterwards by intercepting the
// response emission. Cached content is a performance hint, not a consistency
// guarantee: a process restart silently clears all entries.
//
// Basic usage:
//
//	store := respcache.NewStore()
//	handler = respcache.Middleware(store, respcache.MediumTTL)(handler)
//
//	// After a write that changes job listings:
//	store.Invalidate("/api/jobs")
package respcache

import (
	"strings"
	"sync"
	"time"
)

// TTL presets for cached responses.
const (
	// ShortTTL suits fast-moving data such as notification lists.
	ShortTTL = 60 * time.Second

	// MediumTTL suits listing endpoints refreshed a few times an hour.
	MediumTTL = 300 * time.Second

	// LongTTL suits near-static catalogs such as scholarship listings.
	LongTTL = 900 * time.Second
)

// Clock returns the current time. Tests inject a fake clock to control expiry.
type Clock func() time.Time

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Store maps normalized request keys to cached payloads with expiry.
// An entry whose expiry has passed is logically absent even before the next
// sweep physically removes it. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   Clock
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the store's time source.
func WithClock(clock Clock) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore creates an empty response cache store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries: make(map[string]entry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached payload for key, or ok=false if the key is absent
// or its entry has expired as of now.
func (s *Store) Get(key string, now time.Time) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !e.expiresAt.After(now) {
		return nil, false
	}

	// Return a copy so callers cannot mutate the cached bytes.
	payload := make([]byte, len(e.payload))
	copy(payload, e.payload)
	return payload, true
}

// Set stores payload under key with the given TTL, overwriting any existing
// entry unconditionally.
func (s *Store) Set(key string, payload []byte, ttl time.Duration, now time.Time) {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{payload: stored, expiresAt: now.Add(ttl)}
}

// Invalidate removes every entry whose key contains pattern as a substring.
// Returns the number of entries removed. Calling it again with the same
// pattern is a no-op.
func (s *Store) Invalidate(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.Contains(key, pattern) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Sweep removes every entry expired as of now and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of physically present entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Now returns the store's current time per its clock.
func (s *Store) Now() time.Time {
	return s.clock()
}
