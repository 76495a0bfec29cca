// Package netmon tracks connectivity and emits edge-triggered
// online/offline events. Transitions fire handlers exactly once; a
// repeated report of the same state is ignored.
package netmon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corralhq/corral/internal/scheduler"
)

// ProbeFunc checks reachability of the remote server. It returns nil
// when the server answered.
type ProbeFunc func(ctx context.Context) error

// Monitor holds the current connectivity flag and notifies subscribers
// on transitions.
type Monitor struct {
	logger *slog.Logger

	mu        sync.Mutex
	online    bool
	onOnline  []func()
	onOffline []func()

	probe *scheduler.Task
}

// New creates a Monitor with the given initial state, typically read
// from the host environment's connectivity signal at startup.
func New(initialOnline bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{online: initialOnline, logger: logger}
}

// IsOffline reports the current connectivity flag.
func (m *Monitor) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.online
}

// OnOnline registers a handler for offline→online transitions.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

// OnOffline registers a handler for online→offline transitions.
func (m *Monitor) OnOffline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOffline = append(m.onOffline, fn)
}

// SetOnline records a connectivity report from the host environment.
// Handlers run only on an actual edge, after the flag has flipped.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	var handlers []func()
	if online {
		handlers = append(handlers, m.onOnline...)
	} else {
		handlers = append(handlers, m.onOffline...)
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", "online", online)
	for _, fn := range handlers {
		fn()
	}
}

// StartProbing runs probe at the given cadence and feeds the result
// into SetOnline. The returned task can be paused or stopped; stopping
// the context tears it down as well.
func (m *Monitor) StartProbing(ctx context.Context, probe ProbeFunc, interval time.Duration) *scheduler.Task {
	m.mu.Lock()
	if m.probe != nil {
		t := m.probe
		m.mu.Unlock()
		return t
	}
	task := scheduler.New(interval, func(ctx context.Context) {
		m.SetOnline(probe(ctx) == nil)
	})
	m.probe = task
	m.mu.Unlock()

	task.Start(ctx)
	return task
}
