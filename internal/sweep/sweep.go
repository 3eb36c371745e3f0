// Package sweep runs periodic eviction of expired entries from in-memory
// stores. Both the rate-limit counter store and the response cache store are
// swept this way; the sweep is the only bound on their memory growth.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Target is a store that can evict entries expired as of a point in time.
type Target interface {
	// Sweep removes expired entries and returns how many were removed.
	Sweep(now time.Time) int
}

// Clock returns the current time. Tests inject a fake clock so sweeps can be
// driven without waiting on wall-clock intervals.
type Clock func() time.Time

// Runner owns the background sweep loop for one store. It has an explicit
// start/stop contract so the process lifecycle manager controls it and tests
// can call Target.Sweep directly instead.
type Runner struct {
	target   Target
	interval time.Duration
	clock    Clock
	name     string

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewRunner creates a sweep runner for the given store.
// name labels log output; interval defaults to 5 minutes when non-positive.
func NewRunner(name string, target Target, interval time.Duration, clock Clock) *Runner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	return &Runner{
		name:     name,
		target:   target,
		interval: interval,
		clock:    clock,
	}
}

// Start launches the sweep loop. It is a no-op if already started.
// The loop stops when ctx is canceled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.target.Sweep(r.clock()); removed > 0 {
				log.Debug().
					Str("sweeper", r.name).
					Int("removed", removed).
					Msg("swept expired entries")
			}
		}
	}
}

// Stop halts the sweep loop and waits for it to exit.
// Safe to call multiple times and before Start.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	r.started = false
	r.cancel()
	<-r.done
}
