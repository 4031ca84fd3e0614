// internal/pipeline/analytics/cache.go
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/store"

	"github.com/redis/go-redis/v9"
)

const statsCacheKey = "pipeline:stats"

// Service serves pipeline statistics from store snapshots, with an optional
// Redis cache in front. Cache failures only log: statistics are always
// recomputable from the store, so Redis being down degrades latency, not
// correctness.
type Service struct {
	store  store.Store
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewService creates the analytics service. cache may be nil and ttl zero
// to disable caching entirely.
func NewService(st store.Store, cache *redis.Client, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		store:  st,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "analytics"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats returns the current pipeline statistics, from cache when fresh.
func (s *Service) Stats(ctx context.Context) (*models.PipelineStats, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	apps, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := ComputeStats(apps, s.now())
	s.toCache(ctx, &stats)
	return &stats, nil
}

func (s *Service) fromCache(ctx context.Context) *models.PipelineStats {
	if s.cache == nil || s.ttl <= 0 {
		return nil
	}

	data, err := s.cache.Get(ctx, statsCacheKey).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Warn("stats cache read failed", nil)
		return nil
	}

	var stats models.PipelineStats
	if err := json.Unmarshal(data, &stats); err != nil {
		s.logger.WithError(err).Warn("stats cache entry corrupt", nil)
		return nil
	}
	return &stats
}

func (s *Service) toCache(ctx context.Context, stats *models.PipelineStats) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		s.logger.WithError(err).Warn("stats cache encode failed", nil)
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, data, s.ttl).Err(); err != nil {
		s.logger.WithError(err).Warn("stats cache write failed", nil)
	}
}
