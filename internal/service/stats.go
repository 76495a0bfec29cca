package service

import (
	"context"
	"log/slog"

	"github.com/corralhq/corral/internal/cache"
	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/state"
)

const keyStats = domain.CollectionStats

// StatsService fetches the aggregate dashboard payload. Stats are
// computed server-side; locally they are cache-backed read-only data.
type StatsService struct {
	gateway domain.Gateway
	store   *state.Store
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewStatsService creates a stats service.
func NewStatsService(gw domain.Gateway, store *state.Store, c *cache.Cache, logger *slog.Logger) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsService{gateway: gw, store: store, cache: c, logger: logger}
}

// LoadStats fetches herd statistics with cache fallback.
func (s *StatsService) LoadStats(ctx context.Context) (domain.HerdStats, error) {
	s.store.Dispatch(state.SetLoading{Key: keyStats, Loading: true})
	s.store.Dispatch(state.ClearError{Key: keyStats})
	defer s.store.Dispatch(state.SetLoading{Key: keyStats})

	stats, err := s.gateway.GetHerdStats(ctx)
	if err == nil {
		s.store.Dispatch(state.SetStats{Stats: stats})
		s.cache.Set(domain.CollectionStats, stats)
		return stats, nil
	}

	var cached domain.HerdStats
	if s.cache.Get(domain.CollectionStats, &cached) {
		s.store.Dispatch(state.SetStats{Stats: cached})
		return cached, nil
	}
	if domain.IsConnectivity(err) && s.cache.GetStale(domain.CollectionStats, &cached) {
		s.store.Dispatch(state.SetStats{Stats: cached})
		return cached, nil
	}

	s.logger.Error("failed to load stats", "error", err)
	s.store.Dispatch(state.SetError{Key: keyStats, Message: loadErrorMessage(err)})
	return domain.HerdStats{}, err
}
