package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryConfig holds configuration for the in-memory backend.
type MemoryConfig struct {
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultMemoryConfig returns sensible defaults.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// memoryBackend implements backend on top of an in-process TTL cache. It is
// meant for single-instance deployments and tests, not for shared state.
type memoryBackend struct {
	store *gocache.Cache
}

func newMemoryBackend(cfg MemoryConfig) *memoryBackend {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	return &memoryBackend{
		store: gocache.New(cfg.DefaultTTL, cfg.CleanupInterval),
	}
}

func (m *memoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, nil
	}
	value, ok := v.([]byte)
	if !ok {
		return nil, nil
	}
	// Copy out so callers cannot mutate the stored value.
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (m *memoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	m.store.Set(key, valueCopy, ttl)
	return nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

func (m *memoryBackend) Type() BackendType {
	return BackendMemory
}
