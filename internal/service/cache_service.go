package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService is the process-wide request cache. Concurrent loads of the same key are
// coalesced into one upstream call.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	group      singleflight.Group

	// generations lets an invalidation discard loads that started before it.
	mu          sync.Mutex
	epoch       uint64
	generations map[string]uint64
}

type cacheStamp struct {
	epoch      uint64
	generation uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:        repo,
		metrics:     metrics,
		defaultTTL:  defaultTTL,
		logger:      logger,
		enabled:     enabled,
		generations: make(map[string]uint64),
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Lookup attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Lookup(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Store saves the value in cache.
func (s *CacheService) Store(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Get fills dest from cache, or runs loader once for all concurrent callers of key and
// caches its result for ttl. It reports whether the value came from cache. The shared load
// is detached from the first caller's cancellation, and a load that overlaps an Invalidate of
// its key is returned to its callers but not written back.
func (s *CacheService) Get(ctx context.Context, key string, ttl time.Duration, dest interface{}, loader func(context.Context) (interface{}, error)) (bool, error) {
	if hit, err := s.Lookup(ctx, key, dest); err == nil && hit {
		return true, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		stamp := s.stamp(key)
		loaded, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		if s.stamp(key) == stamp {
			_ = s.Store(loadCtx, key, loaded, ttl)
		} else {
			s.logger.Debug("cache load superseded by invalidation", zap.String("key", key))
		}
		return loaded, nil
	})
	if err != nil {
		return false, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy cached value")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy cached value")
	}
	return false, nil
}

// Invalidate removes one cached key.
func (s *CacheService) Invalidate(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	s.generations[key]++
	s.mu.Unlock()
	s.group.Forget(key)
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// InvalidatePattern removes cached values matching a glob pattern.
func (s *CacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) stamp(key string) cacheStamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cacheStamp{epoch: s.epoch, generation: s.generations[key]}
}
