package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
	"github.com/noah-isme/trombinoscope-api/internal/stats"
)

const dashboardCacheKey = "stats:dashboard"

// StatsService serves derived roster statistics.
type StatsService interface {
	Dashboard(ctx context.Context) (dto.DashboardStats, error)
	Modules(ctx context.Context) ([]dto.ModuleStats, error)
	Students(ctx context.Context) ([]dto.StudentStats, error)
	Invalidate(ctx context.Context)
}

type statsService struct {
	store    repository.Store
	cache    *redis.Client
	cacheKey string
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewStatsService builds the statistics service. cache may be nil.
func NewStatsService(store repository.Store, cache *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) StatsService {
	key := dashboardCacheKey
	if prefix != "" {
		key = prefix + ":" + dashboardCacheKey
	}
	return &statsService{
		store:    store,
		cache:    cache,
		cacheKey: key,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "stats_service").Logger(),
		now:      time.Now,
	}
}

func (s *statsService) Dashboard(ctx context.Context) (dto.DashboardStats, error) {
	if s.cache != nil && s.cacheTTL > 0 {
		if cached, err := s.cache.Get(ctx, s.cacheKey).Result(); err == nil {
			var response dto.DashboardStats
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	roster, err := s.load(ctx)
	if err != nil {
		return dto.DashboardStats{}, err
	}
	response := stats.Dashboard(roster, s.now())

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, s.cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}
	return response, nil
}

func (s *statsService) Modules(ctx context.Context) ([]dto.ModuleStats, error) {
	roster, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Modules(roster), nil
}

func (s *statsService) Students(ctx context.Context) ([]dto.StudentStats, error) {
	roster, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Students(roster), nil
}

// Invalidate drops the cached dashboard; it is wired to every roster change.
func (s *statsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

func (s *statsService) load(ctx context.Context) (models.Roster, error) {
	roster, err := repository.LoadRoster(ctx, s.store)
	if err != nil {
		return models.Roster{}, fmt.Errorf("failed to load roster: %w", err)
	}
	return roster, nil
}
