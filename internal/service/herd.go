// Package service exposes the caller-facing operations of the data
// layer. The render layer issues these calls and paints whatever the
// state store currently holds; it never talks to the gateway, cache,
// or queue directly.
package service

import (
	"context"
	"log/slog"

	"github.com/corralhq/corral/internal/cache"
	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/netmon"
	"github.com/corralhq/corral/internal/optimistic"
	"github.com/corralhq/corral/internal/queue"
	"github.com/corralhq/corral/internal/state"
	"github.com/corralhq/corral/internal/syncer"
)

// Loading/error keys for herd operations.
const (
	keyCattle       = domain.CollectionCattle
	keyAddCattle    = "addCattle"
	keyUpdateCattle = "updateCattle"
	keyDeleteCattle = "deleteCattle"
)

// HerdService orchestrates cattle reads and writes across the state
// store, cache, optimistic coordinator, and sync engine.
type HerdService struct {
	gateway     domain.Gateway
	store       *state.Store
	cache       *cache.Cache
	queue       *queue.Queue
	coordinator *optimistic.Coordinator
	engine      *syncer.Engine
	monitor     *netmon.Monitor
	logger      *slog.Logger
}

// NewHerdService creates the herd service and arms the reconnect
// trigger: each offline→online transition starts exactly one drain.
func NewHerdService(
	gw domain.Gateway,
	store *state.Store,
	c *cache.Cache,
	q *queue.Queue,
	coordinator *optimistic.Coordinator,
	engine *syncer.Engine,
	monitor *netmon.Monitor,
	logger *slog.Logger,
) *HerdService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &HerdService{
		gateway:     gw,
		store:       store,
		cache:       c,
		queue:       q,
		coordinator: coordinator,
		engine:      engine,
		monitor:     monitor,
		logger:      logger,
	}
	monitor.OnOnline(func() {
		go func() {
			if err := s.engine.Drain(context.Background()); err != nil {
				s.logger.Warn("reconnect sync failed", "error", err)
			}
		}()
	})
	return s
}

// Store exposes the state store for snapshot reads and subscriptions.
func (s *HerdService) Store() *state.Store { return s.store }

// LoadCattle fetches the cattle collection. On gateway failure it
// falls back to a fresh cache entry without surfacing an error; when
// the failure is connectivity loss even a stale entry is served, and
// an error is recorded only if no cached data exists at all.
func (s *HerdService) LoadCattle(ctx context.Context) ([]domain.Cattle, error) {
	s.store.Dispatch(state.SetLoading{Key: keyCattle, Loading: true})
	s.store.Dispatch(state.ClearError{Key: keyCattle})
	defer s.store.Dispatch(state.SetLoading{Key: keyCattle})

	records, err := s.gateway.ListCattle(ctx)
	if err == nil {
		s.store.Dispatch(state.SetCattle{Records: records})
		s.cache.Set(domain.CollectionCattle, records)
		s.logger.Debug("fetched cattle", "count", len(records))
		return records, nil
	}

	var cached []domain.Cattle
	if s.cache.Get(domain.CollectionCattle, &cached) {
		s.store.Dispatch(state.SetCattle{Records: cached})
		s.logger.Info("serving cattle from cache", "count", len(cached), "cause", err)
		return cached, nil
	}
	if domain.IsConnectivity(err) && s.cache.GetStale(domain.CollectionCattle, &cached) {
		s.store.Dispatch(state.SetCattle{Records: cached})
		s.logger.Info("serving stale cattle while offline", "count", len(cached))
		return cached, nil
	}

	s.logger.Error("failed to load cattle", "error", err)
	s.store.Dispatch(state.SetError{Key: keyCattle, Message: loadErrorMessage(err)})
	return nil, err
}

// AddCattle creates a record optimistically. Offline, the record gets
// a temp id and the create is queued; the returned record is the
// optimistic one. Online, the server-assigned record replaces it and
// is returned.
func (s *HerdService) AddCattle(ctx context.Context, payload domain.Cattle) (domain.Cattle, error) {
	record := payload
	if record.ID == "" {
		record.ID = domain.NewTempID()
	}
	if record.AddedAt == 0 {
		record.AddedAt = domain.Now()
	}
	if record.Status == "" {
		record.Status = domain.StatusActive
	}

	s.store.Dispatch(state.SetLoading{Key: keyAddCattle, Loading: true})
	s.store.Dispatch(state.ClearError{Key: keyAddCattle})
	defer s.store.Dispatch(state.SetLoading{Key: keyAddCattle})

	var confirmed domain.Cattle
	queued, err := s.coordinator.Perform(ctx, optimistic.Mutation{
		Apply: func() {
			s.store.Dispatch(state.AddCattle{Record: record})
		},
		Rollback: func() {
			s.store.Dispatch(state.RemoveCattle{ID: record.ID})
		},
		Call: func(ctx context.Context) (func(), error) {
			created, err := s.gateway.CreateCattle(ctx, record)
			if err != nil {
				return nil, err
			}
			confirmed = created
			return func() {
				s.store.Dispatch(state.ReplaceCattleID{TempID: record.ID, Record: created})
				s.cacheCattleSnapshot()
			}, nil
		},
		Change: domain.NewPendingChange(domain.ChangeCreate, domain.CollectionCattle, record.ID, record),
	})
	if err != nil {
		s.store.Dispatch(state.SetError{Key: keyAddCattle, Message: err.Error()})
		return domain.Cattle{}, err
	}
	if queued {
		return record, nil
	}
	return confirmed, nil
}

// UpdateCattle replaces a record with the given full patch. The
// optimistic value lands immediately; a server rejection restores the
// previous record.
func (s *HerdService) UpdateCattle(ctx context.Context, id string, patch domain.Cattle) (domain.Cattle, error) {
	patch.ID = id
	patch.UpdatedAt = domain.Now()
	previous, existed := s.store.Snapshot().CattleByID(id)

	s.store.Dispatch(state.SetLoading{Key: keyUpdateCattle, Loading: true})
	s.store.Dispatch(state.ClearError{Key: keyUpdateCattle})
	defer s.store.Dispatch(state.SetLoading{Key: keyUpdateCattle})

	var confirmed domain.Cattle
	queued, err := s.coordinator.Perform(ctx, optimistic.Mutation{
		Apply: func() {
			s.store.Dispatch(state.UpdateCattle{Record: patch})
		},
		Rollback: func() {
			if existed {
				s.store.Dispatch(state.UpdateCattle{Record: previous})
			}
		},
		Call: func(ctx context.Context) (func(), error) {
			updated, err := s.gateway.UpdateCattle(ctx, id, patch)
			if err != nil {
				return nil, err
			}
			confirmed = updated
			return func() {
				s.store.Dispatch(state.UpdateCattle{Record: updated})
				s.cacheCattleSnapshot()
			}, nil
		},
		Change: domain.NewPendingChange(domain.ChangeUpdate, domain.CollectionCattle, id, patch),
	})
	if err != nil {
		s.store.Dispatch(state.SetError{Key: keyUpdateCattle, Message: err.Error()})
		return domain.Cattle{}, err
	}
	if queued {
		return patch, nil
	}
	return confirmed, nil
}

// DeleteCattle removes a record optimistically. A server rejection
// restores it.
func (s *HerdService) DeleteCattle(ctx context.Context, id string) error {
	previous, existed := s.store.Snapshot().CattleByID(id)

	s.store.Dispatch(state.SetLoading{Key: keyDeleteCattle, Loading: true})
	s.store.Dispatch(state.ClearError{Key: keyDeleteCattle})
	defer s.store.Dispatch(state.SetLoading{Key: keyDeleteCattle})

	_, err := s.coordinator.Perform(ctx, optimistic.Mutation{
		Apply: func() {
			s.store.Dispatch(state.RemoveCattle{ID: id})
		},
		Rollback: func() {
			if existed {
				s.store.Dispatch(state.AddCattle{Record: previous})
			}
		},
		Call: func(ctx context.Context) (func(), error) {
			if err := s.gateway.DeleteCattle(ctx, id); err != nil {
				return nil, err
			}
			return s.cacheCattleSnapshot, nil
		},
		Change: domain.NewPendingChange(domain.ChangeDelete, domain.CollectionCattle, id, nil),
	})
	if err != nil {
		s.store.Dispatch(state.SetError{Key: keyDeleteCattle, Message: err.Error()})
		return err
	}
	return nil
}

// SelectCattle sets the current selection; an empty id clears it.
func (s *HerdService) SelectCattle(id string) {
	s.store.Dispatch(state.SelectCattle{ID: id})
}

// SyncPendingChanges drains the queue now, independent of a
// connectivity transition.
func (s *HerdService) SyncPendingChanges(ctx context.Context) error {
	return s.engine.Drain(ctx)
}

// PendingChanges reports how many mutations await replay.
func (s *HerdService) PendingChanges() int {
	return s.queue.Len()
}

// ClearError clears the error recorded under an operation key.
func (s *HerdService) ClearError(key string) {
	s.store.Dispatch(state.ClearError{Key: key})
}

// cacheCattleSnapshot persists the current in-memory collection so the
// cache tracks confirmed state.
func (s *HerdService) cacheCattleSnapshot() {
	s.cache.Set(domain.CollectionCattle, s.store.Snapshot().Cattle)
}

func loadErrorMessage(err error) string {
	if domain.IsConnectivity(err) {
		return "offline and no cached data available"
	}
	return err.Error()
}
