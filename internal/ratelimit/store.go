// Package ratelimit provides fixed-window request rate limiting for studentos.
//
// The package is built around two pieces:
//   - CounterStore: a process-wide map from identity key to the request count
//     accumulated in the current window, with periodic eviction of expired
//     entries via a Sweeper.
//   - Limiter: a policy (window length, request cap, key derivation) over a
//     CounterStore that produces per-request admission decisions and the
//     standard X-RateLimit-* response headers.
//
// Basic usage:
//
//	store := ratelimit.NewCounterStore()
//	limiter := ratelimit.NewLimiter(store, ratelimit.AIPolicy())
//	handler = limiter.Middleware()(handler)
package ratelimit

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake clock to control
// window expiry deterministically.
type Clock func() time.Time

// Entry is the per-key counter state for the current window.
type Entry struct {
	// Count is the number of requests seen in the current window.
	Count int

	// ResetAt is when the current window ends and the count resets.
	ResetAt time.Time
}

// CounterStore tracks request counts per identity key within fixed time
// windows. It is safe for concurrent use; Touch performs its read-modify-write
// under the store mutex so concurrent increments on the same key are never lost.
type CounterStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	clock   Clock
}

// StoreOption configures a CounterStore.
type StoreOption func(*CounterStore)

// WithClock overrides the store's time source.
func WithClock(clock Clock) StoreOption {
	return func(s *CounterStore) {
		s.clock = clock
	}
}

// NewCounterStore creates an empty counter store.
func NewCounterStore(opts ...StoreOption) *CounterStore {
	s := &CounterStore{
		entries: make(map[string]Entry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Touch records one request for the given key and returns the updated entry.
// If the key has no entry, or its window has already elapsed, a fresh window
// starts with count 1. Otherwise the count increments in place.
func (s *CounterStore) Touch(key string, window time.Duration) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	entry, ok := s.entries[key]
	if !ok || entry.ResetAt.Before(now) {
		entry = Entry{Count: 1, ResetAt: now.Add(window)}
	} else {
		entry.Count++
	}
	s.entries[key] = entry
	return entry
}

// Sweep removes every entry whose window ended before now.
// Returns the number of entries removed. The sweep is the only bound on
// memory growth when many distinct keys (e.g. unique IPs) pass through.
func (s *CounterStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.ResetAt.Before(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the current number of tracked keys.
func (s *CounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Now returns the store's current time per its clock.
func (s *CounterStore) Now() time.Time {
	return s.clock()
}
