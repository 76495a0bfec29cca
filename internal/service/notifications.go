package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/corralhq/corral/internal/cache"
	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/optimistic"
	"github.com/corralhq/corral/internal/scheduler"
	"github.com/corralhq/corral/internal/state"
)

const (
	keyNotifications      = domain.CollectionNotifications
	keyMarkRead           = "markNotificationRead"
	keyDeleteNotification = "deleteNotification"
)

// NotificationService manages the notification collection, including
// the periodic background refresh that replaces ad-hoc polling timers.
type NotificationService struct {
	gateway     domain.Gateway
	store       *state.Store
	cache       *cache.Cache
	coordinator *optimistic.Coordinator
	logger      *slog.Logger

	refresh *scheduler.Task
}

// NewNotificationService creates a notification service.
func NewNotificationService(gw domain.Gateway, store *state.Store, c *cache.Cache, coordinator *optimistic.Coordinator, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		gateway:     gw,
		store:       store,
		cache:       c,
		coordinator: coordinator,
		logger:      logger,
	}
}

// LoadNotifications fetches notifications with the same cache-fallback
// ladder as cattle reads.
func (s *NotificationService) LoadNotifications(ctx context.Context) ([]domain.Notification, error) {
	s.store.Dispatch(state.SetLoading{Key: keyNotifications, Loading: true})
	s.store.Dispatch(state.ClearError{Key: keyNotifications})
	defer s.store.Dispatch(state.SetLoading{Key: keyNotifications})

	records, err := s.gateway.ListNotifications(ctx)
	if err == nil {
		s.store.Dispatch(state.SetNotifications{Records: records})
		s.cache.Set(domain.CollectionNotifications, records)
		s.logger.Debug("fetched notifications", "count", len(records))
		return records, nil
	}

	var cached []domain.Notification
	if s.cache.Get(domain.CollectionNotifications, &cached) {
		s.store.Dispatch(state.SetNotifications{Records: cached})
		return cached, nil
	}
	if domain.IsConnectivity(err) && s.cache.GetStale(domain.CollectionNotifications, &cached) {
		s.store.Dispatch(state.SetNotifications{Records: cached})
		return cached, nil
	}

	s.logger.Error("failed to load notifications", "error", err)
	s.store.Dispatch(state.SetError{Key: keyNotifications, Message: loadErrorMessage(err)})
	return nil, err
}

// MarkRead flips a notification to read optimistically.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	previous := s.store.Snapshot().Notifications

	_, err := s.coordinator.Perform(ctx, optimistic.Mutation{
		Apply: func() {
			s.store.Dispatch(state.MarkNotificationRead{ID: id})
		},
		Rollback: func() {
			s.store.Dispatch(state.SetNotifications{Records: previous})
		},
		Call: func(ctx context.Context) (func(), error) {
			if _, err := s.gateway.MarkNotificationRead(ctx, id); err != nil {
				return nil, err
			}
			return s.cacheSnapshot, nil
		},
		Change: domain.NewPendingChange(domain.ChangeUpdate, domain.CollectionNotifications, id, nil),
	})
	if err != nil {
		s.store.Dispatch(state.SetError{Key: keyMarkRead, Message: err.Error()})
		return err
	}
	return nil
}

// Delete removes a notification optimistically.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	previous := s.store.Snapshot().Notifications

	_, err := s.coordinator.Perform(ctx, optimistic.Mutation{
		Apply: func() {
			s.store.Dispatch(state.RemoveNotification{ID: id})
		},
		Rollback: func() {
			s.store.Dispatch(state.SetNotifications{Records: previous})
		},
		Call: func(ctx context.Context) (func(), error) {
			if err := s.gateway.DeleteNotification(ctx, id); err != nil {
				return nil, err
			}
			return s.cacheSnapshot, nil
		},
		Change: domain.NewPendingChange(domain.ChangeDelete, domain.CollectionNotifications, id, nil),
	})
	if err != nil {
		s.store.Dispatch(state.SetError{Key: keyDeleteNotification, Message: err.Error()})
		return err
	}
	return nil
}

// UnreadCount reports unread notifications in the current snapshot.
func (s *NotificationService) UnreadCount() int {
	n := 0
	for _, r := range s.store.Snapshot().Notifications {
		if !r.Read {
			n++
		}
	}
	return n
}

// StartAutoRefresh begins refreshing notifications at the given
// cadence. The returned task supports pause/resume and is torn down by
// Stop or context cancellation.
func (s *NotificationService) StartAutoRefresh(ctx context.Context, interval time.Duration) *scheduler.Task {
	if s.refresh != nil {
		return s.refresh
	}
	s.refresh = scheduler.New(interval, func(ctx context.Context) {
		if _, err := s.LoadNotifications(ctx); err != nil {
			s.logger.Debug("background notification refresh failed", "error", err)
		}
	})
	s.refresh.Start(ctx)
	return s.refresh
}

// StopAutoRefresh cancels the background refresh, if running.
func (s *NotificationService) StopAutoRefresh() {
	if s.refresh != nil {
		s.refresh.Stop()
		s.refresh = nil
	}
}

func (s *NotificationService) cacheSnapshot() {
	s.cache.Set(domain.CollectionNotifications, s.store.Snapshot().Notifications)
}
