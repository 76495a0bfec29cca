// Package optimistic wraps mutations with "apply now, confirm or roll
// back later" semantics so the interface never blocks on the network.
package optimistic

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/netmon"
	"github.com/corralhq/corral/internal/queue"
)

// Mutation describes one optimistic write.
type Mutation struct {
	// Apply dispatches the optimistic effect. It runs synchronously,
	// before any network call resolves.
	Apply func()

	// Rollback restores the pre-mutation state. Invoked only when the
	// server rejects the payload, never on connectivity loss.
	Rollback func()

	// Call performs the network confirmation. On success it returns a
	// commit closure that reconciles the optimistic state with the
	// authoritative result (e.g. swapping in a server-assigned id).
	// The coordinator invokes commit only if the operation's
	// generation is still current.
	Call func(ctx context.Context) (commit func(), err error)

	// Change is queued verbatim when the server is unreachable.
	Change domain.PendingChange
}

// Coordinator serializes optimistic writes against the pending queue
// and carries a generation counter: bumping the generation marks every
// in-flight call stale, so a resolution arriving after its caller has
// moved on is discarded rather than applied.
type Coordinator struct {
	queue   *queue.Queue
	monitor *netmon.Monitor
	logger  *slog.Logger
	gen     atomic.Uint64
}

// New creates a coordinator.
func New(q *queue.Queue, monitor *netmon.Monitor, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{queue: q, monitor: monitor, logger: logger}
}

// Generation returns the current generation counter.
func (c *Coordinator) Generation() uint64 {
	return c.gen.Load()
}

// Invalidate bumps the generation, marking all in-flight mutations
// stale. Callers invoke it when the context that issued the mutations
// no longer exists.
func (c *Coordinator) Invalidate() {
	c.gen.Add(1)
}

// Perform runs one optimistic mutation. It reports queued=true when
// the change was handed to the pending queue instead of confirmed.
//
// The optimistic effect always lands first. Offline (or unreachable at
// call time) the change is queued and the optimistic state stays in
// place: the user sees the edit immediately and it is guaranteed to be
// retried. A server-side rejection rolls the optimistic state back and
// surfaces the error without queueing.
func (c *Coordinator) Perform(ctx context.Context, m Mutation) (queued bool, err error) {
	gen := c.gen.Load()

	m.Apply()

	if c.monitor != nil && c.monitor.IsOffline() {
		return true, c.enqueue(m.Change)
	}

	commit, err := m.Call(ctx)
	stale := c.gen.Load() != gen

	if err != nil {
		if domain.IsConnectivity(err) {
			// The flag lagged reality; treat exactly like offline.
			return true, c.enqueue(m.Change)
		}
		if stale {
			c.logger.Debug("discarding stale rejection", "changeID", m.Change.ID)
			return false, domain.ErrStaleOperation
		}
		if m.Rollback != nil {
			m.Rollback()
		}
		return false, err
	}

	if stale {
		c.logger.Debug("discarding stale confirmation", "changeID", m.Change.ID)
		return false, domain.ErrStaleOperation
	}
	if commit != nil {
		commit()
	}
	return false, nil
}

func (c *Coordinator) enqueue(change domain.PendingChange) error {
	if err := c.queue.Enqueue(change); err != nil {
		c.logger.Error("failed to enqueue pending change", "changeID", change.ID, "error", err)
		return err
	}
	c.logger.Info("queued offline change",
		"changeID", change.ID, "kind", change.Kind, "collection", change.Collection)
	return nil
}
