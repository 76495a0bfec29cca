// Package scheduler provides a cancellable periodic task. Unlike bare
// time.Ticker loops scattered across callers, a Task has an explicit
// lifecycle (start, pause, resume, stop) so no timer outlives the
// component that owns it.
package scheduler

import (
	"context"
	"sync"
	"time"
)

const defaultInterval = 30 * time.Second

// Task runs fn at a fixed cadence until stopped.
type Task struct {
	interval time.Duration
	fn       func(ctx context.Context)

	mu      sync.Mutex
	paused  bool
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New creates a task. It does not start running until Start is called.
func New(interval time.Duration, fn func(ctx context.Context)) *Task {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Task{interval: interval, fn: fn}
}

// Start launches the task loop. The first run happens immediately,
// subsequent runs on each tick. Calling Start on a running task is a
// no-op.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.started = true
	t.mu.Unlock()

	go t.loop(ctx)
}

func (t *Task) loop(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if !t.isPaused() {
			t.fn(ctx)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Pause suspends runs without tearing down the loop; ticks are skipped
// until Resume.
func (t *Task) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

// Resume re-enables runs after a Pause.
func (t *Task) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
}

// Stop cancels the loop and waits for the in-flight run, if any, to
// return. A stopped task cannot be restarted.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Task) isPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}
