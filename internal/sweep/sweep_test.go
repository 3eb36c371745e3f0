package sweep

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingTarget records sweep invocations and reports one removal each time.
type countingTarget struct {
	calls atomic.Int64
}

func (c *countingTarget) Sweep(time.Time) int {
	c.calls.Add(1)
	return 1
}

func TestRunner_SweepsOnInterval(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	runner := NewRunner("test", target, 5*time.Millisecond, nil)

	runner.Start(context.Background())
	defer runner.Stop()

	deadline := time.After(2 * time.Second)
	for target.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", target.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunner_StopBeforeStart(t *testing.T) {
	t.Parallel()

	runner := NewRunner("test", &countingTarget{}, time.Minute, nil)
	runner.Stop() // must not panic or block
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	runner := NewRunner("test", &countingTarget{}, time.Minute, nil)
	runner.Start(context.Background())
	runner.Stop()
	runner.Stop()
}

func TestRunner_DoubleStartIsNoop(t *testing.T) {
	t.Parallel()

	runner := NewRunner("test", &countingTarget{}, time.Minute, nil)
	runner.Start(context.Background())
	runner.Start(context.Background())
	runner.Stop()
}

func TestRunner_ContextCancelStopsLoop(t *testing.T) {
	t.Parallel()

	runner := NewRunner("test", &countingTarget{}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)
	cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		runner.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
	wg.Wait()
}
