package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCacheRepository is the in-process cache used when Redis is not configured.
type MemoryCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCacheRepository constructs an empty in-memory cache.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get unmarshals a live entry into dest or returns ErrCacheMiss.
func (r *MemoryCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok || !r.now().Before(entry.expiresAt) {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value under key until ttl elapses.
func (r *MemoryCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.mu.Lock()
	r.entries[key] = memoryEntry{payload: payload, expiresAt: r.now().Add(ttl)}
	r.mu.Unlock()
	return nil
}

// Delete removes a single entry.
func (r *MemoryCacheRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// DeleteByPattern removes entries whose key matches a glob pattern such as "schedules:*".
func (r *MemoryCacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("invalid cache pattern %s: %w", pattern, err)
		}
		if matched {
			delete(r.entries, key)
		}
	}
	return nil
}
