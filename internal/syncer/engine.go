// Package syncer replays the pending-change queue against the server
// once connectivity returns.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corralhq/corral/internal/cache"
	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/netmon"
	"github.com/corralhq/corral/internal/queue"
	"github.com/corralhq/corral/internal/state"
)

// Engine drains the queue strictly in enqueue order. On the first
// failed replay it stops, preserving the failing change and everything
// after it; no queued item is ever silently dropped.
type Engine struct {
	gateway domain.Gateway
	queue   *queue.Queue
	store   *state.Store
	cache   *cache.Cache
	monitor *netmon.Monitor
	logger  *slog.Logger

	mu       sync.Mutex
	draining bool
}

// New creates a sync engine.
func New(gateway domain.Gateway, q *queue.Queue, store *state.Store, c *cache.Cache, monitor *netmon.Monitor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		gateway: gateway,
		queue:   q,
		store:   store,
		cache:   c,
		monitor: monitor,
		logger:  logger,
	}
}

// Drain replays the queue. It is a no-op when the queue is empty, the
// device is offline, or another drain is already running. After a
// fully successful drain the affected collections are list-refreshed
// so local state matches server truth exactly.
func (e *Engine) Drain(ctx context.Context) error {
	if e.monitor != nil && e.monitor.IsOffline() {
		return nil
	}

	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return nil
	}
	e.draining = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
	}()

	changes := e.queue.Snapshot()
	if len(changes) == 0 {
		return nil
	}

	e.store.Dispatch(state.SetLoading{Key: "sync", Loading: true})
	e.store.Dispatch(state.ClearError{Key: "sync"})
	defer e.store.Dispatch(state.SetLoading{Key: "sync"})

	e.logger.Info("draining pending changes", "count", len(changes))

	affected := make(map[string]bool)
	for i, change := range changes {
		if err := ctx.Err(); err != nil {
			return err
		}
		created, err := e.replay(ctx, change)
		if err != nil {
			e.logger.Error("replay failed, halting drain",
				"changeID", change.ID, "kind", change.Kind,
				"collection", change.Collection, "remaining", len(changes)-i, "error", err)
			e.store.Dispatch(state.SetError{Key: "sync", Message: err.Error()})
			return fmt.Errorf("%w: %v", domain.ErrSyncHalted, err)
		}

		if err := e.queue.Remove(change.ID); err != nil {
			e.logger.Warn("failed to remove replayed change", "changeID", change.ID, "error", err)
		}
		affected[change.Collection] = true

		// A confirmed create resolves the temp id: rewrite every
		// still-queued change that references it, both in the durable
		// queue and in the remainder of this drain pass.
		if change.Kind == domain.ChangeCreate && created != nil {
			tempID := changeRecordID(change)
			if domain.IsTempID(tempID) {
				if err := e.queue.RewriteTempID(tempID, created.ID); err != nil {
					e.logger.Warn("failed to rewrite temp id in queue", "tempID", tempID, "error", err)
				}
				for j := i + 1; j < len(changes); j++ {
					if changes[j].ReferencesTempID(tempID) {
						changes[j] = changes[j].RewriteTempID(tempID, created.ID)
					}
				}
				e.store.Dispatch(state.ReplaceCattleID{TempID: tempID, Record: *created})
				e.logger.Debug("resolved temp id", "tempID", tempID, "realID", created.ID)
			}
		}
	}

	e.refresh(ctx, affected)
	e.logger.Info("drain complete", "collections", len(affected))
	return nil
}

// replay issues the matching gateway call for one change. The returned
// record is non-nil only for confirmed cattle creates.
func (e *Engine) replay(ctx context.Context, change domain.PendingChange) (*domain.Cattle, error) {
	// Replays are not deduplicated server-side today; the change id
	// rides along as an idempotency key so a future server can.
	ctx = domain.WithIdempotencyKey(ctx, change.ID)

	switch change.Collection {
	case domain.CollectionCattle:
		switch change.Kind {
		case domain.ChangeCreate:
			var payload domain.Cattle
			if err := json.Unmarshal(change.Payload, &payload); err != nil {
				return nil, fmt.Errorf("corrupt create payload: %w", err)
			}
			created, err := e.gateway.CreateCattle(ctx, payload)
			if err != nil {
				return nil, err
			}
			return &created, nil
		case domain.ChangeUpdate:
			var patch domain.Cattle
			if err := json.Unmarshal(change.Payload, &patch); err != nil {
				return nil, fmt.Errorf("corrupt update payload: %w", err)
			}
			_, err := e.gateway.UpdateCattle(ctx, change.TargetID, patch)
			return nil, err
		case domain.ChangeDelete:
			return nil, e.gateway.DeleteCattle(ctx, change.TargetID)
		}
	case domain.CollectionNotifications:
		switch change.Kind {
		case domain.ChangeUpdate:
			_, err := e.gateway.MarkNotificationRead(ctx, change.TargetID)
			return nil, err
		case domain.ChangeDelete:
			return nil, e.gateway.DeleteNotification(ctx, change.TargetID)
		}
	}
	return nil, fmt.Errorf("unknown change %s/%s", change.Collection, change.Kind)
}

// refresh pulls server truth for each affected collection, eliminating
// any drift accumulated from optimistic approximations.
func (e *Engine) refresh(ctx context.Context, affected map[string]bool) {
	if affected[domain.CollectionCattle] {
		if records, err := e.gateway.ListCattle(ctx); err == nil {
			e.store.Dispatch(state.SetCattle{Records: records})
			e.cache.Set(domain.CollectionCattle, records)
		} else {
			e.logger.Warn("post-drain cattle refresh failed", "error", err)
		}
	}
	if affected[domain.CollectionNotifications] {
		if records, err := e.gateway.ListNotifications(ctx); err == nil {
			e.store.Dispatch(state.SetNotifications{Records: records})
			e.cache.Set(domain.CollectionNotifications, records)
		} else {
			e.logger.Warn("post-drain notification refresh failed", "error", err)
		}
	}
}

func changeRecordID(change domain.PendingChange) string {
	if change.TargetID != "" {
		return change.TargetID
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(change.Payload, &probe); err != nil {
		return ""
	}
	return probe.ID
}
