package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	task := New(10*time.Millisecond, func(ctx context.Context) { runs.Add(1) })

	task.Start(context.Background())
	defer task.Stop()

	// First run is immediate.
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
	// Ticks keep it going.
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestPauseSkipsRuns(t *testing.T) {
	var runs atomic.Int32
	task := New(5*time.Millisecond, func(ctx context.Context) { runs.Add(1) })

	task.Pause()
	task.Start(context.Background())
	defer task.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, runs.Load(), "paused task must not run")

	task.Resume()
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)
}

func TestStopWaitsForLoopExit(t *testing.T) {
	var runs atomic.Int32
	task := New(5*time.Millisecond, func(ctx context.Context) { runs.Add(1) })

	task.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)

	task.Stop()
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop returns")
}

func TestContextCancellationStopsLoop(t *testing.T) {
	var runs atomic.Int32
	task := New(5*time.Millisecond, func(ctx context.Context) { runs.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	task.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestStopBeforeStartIsNoOp(t *testing.T) {
	task := New(time.Second, func(ctx context.Context) {})
	task.Stop() // must not panic or block
}
