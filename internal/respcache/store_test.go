package respcache

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStore_GetSetRoundTrip(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	store.Set("cache:/jobs?x=1", []byte(`{"jobs":[]}`), 60*time.Second, clock.Now())

	payload, ok := store.Get("cache:/jobs?x=1", clock.Now())
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(payload) != `{"jobs":[]}` {
		t.Errorf("unexpected payload: %s", payload)
	}
}

func TestStore_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	t0 := clock.Now()
	store.Set("cache:/jobs?x=1", []byte(`{"jobs":[]}`), 60*time.Second, t0)

	// At t=59 the entry is still live.
	if _, ok := store.Get("cache:/jobs?x=1", t0.Add(59*time.Second)); !ok {
		t.Error("expected hit at t=59s")
	}

	// At exactly t=60 the entry is logically absent (expiresAt <= now).
	if _, ok := store.Get("cache:/jobs?x=1", t0.Add(60*time.Second)); ok {
		t.Error("expected miss at t=60s")
	}

	// At t=61 it stays absent even though no sweep has run.
	if _, ok := store.Get("cache:/jobs?x=1", t0.Add(61*time.Second)); ok {
		t.Error("expected miss at t=61s")
	}
	if store.Len() != 1 {
		t.Errorf("entry should still be physically present before sweep, len=%d", store.Len())
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	store.Set("cache:/jobs", []byte(`{"v":1}`), time.Minute, clock.Now())
	store.Set("cache:/jobs", []byte(`{"v":2}`), time.Minute, clock.Now())

	payload, ok := store.Get("cache:/jobs", clock.Now())
	if !ok {
		t.Fatal("expected hit")
	}
	if string(payload) != `{"v":2}` {
		t.Errorf("expected overwritten payload, got %s", payload)
	}
	if store.Len() != 1 {
		t.Errorf("overwrite must not duplicate entries, len=%d", store.Len())
	}
}

func TestStore_InvalidateSubstring(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	store.Set("cache:/api/jobs?page=1", []byte(`1`), time.Minute, clock.Now())
	store.Set("cache:/api/jobs?page=2", []byte(`2`), time.Minute, clock.Now())
	store.Set("cache:/api/scholarships", []byte(`3`), time.Minute, clock.Now())

	removed := store.Invalidate("/api/jobs")
	if removed != 2 {
		t.Errorf("expected 2 entries invalidated, got %d", removed)
	}

	if _, ok := store.Get("cache:/api/scholarships", clock.Now()); !ok {
		t.Error("unrelated entry must survive invalidation")
	}

	// Idempotent: a second call removes nothing.
	if removed := store.Invalidate("/api/jobs"); removed != 0 {
		t.Errorf("expected second invalidation to be a no-op, removed %d", removed)
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	store.Set("cache:/a", []byte(`1`), time.Minute, clock.Now())
	store.Set("cache:/b", []byte(`2`), time.Minute, clock.Now())
	store.Clear()

	if store.Len() != 0 {
		t.Errorf("expected empty store after clear, len=%d", store.Len())
	}
}

func TestStore_Sweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	store.Set("cache:/short", []byte(`1`), time.Minute, clock.Now())
	store.Set("cache:/long", []byte(`2`), time.Hour, clock.Now())

	clock.Advance(2 * time.Minute)
	removed := store.Sweep(clock.Now())

	if removed != 1 {
		t.Errorf("expected 1 entry swept, got %d", removed)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry remaining, got %d", store.Len())
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(WithClock(clock.Now))

	store.Set("cache:/a", []byte(`{"v":1}`), time.Minute, clock.Now())

	payload, _ := store.Get("cache:/a", clock.Now())
	payload[0] = 'X'

	fresh, _ := store.Get("cache:/a", clock.Now())
	if string(fresh) != `{"v":1}` {
		t.Errorf("cached bytes were mutated through a returned slice: %s", fresh)
	}
}
