package cache

import (
	"context"
	"time"

	"github.com/tidemill/llmgate/internal/metrics"
	"github.com/tidemill/llmgate/internal/observability"
)

// Config holds the complete cache configuration.
type Config struct {
	Type      BackendType   `yaml:"type"` // redis, memory, or empty for passthrough
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
	Redis     RedisConfig   `yaml:"redis"`
	Memory    MemoryConfig  `yaml:"memory"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Namespace: "llmgate",
		TTL:       5 * time.Minute,
		Redis:     DefaultRedisConfig(),
		Memory:    DefaultMemoryConfig(),
	}
}

// New constructs a cache from configuration. It never returns nil and never
// fails: with no backend configured, or a configured backend unreachable, the
// passthrough implementation is returned and every read behaves as a miss.
func New(cfg Config, logger *observability.Logger) Cache {
	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.Type {
	case BackendRedis:
		b, err := newRedisBackend(cfg.Redis, cfg.Namespace)
		if err != nil {
			logger.Warn("redis cache unreachable, falling back to passthrough",
				"addr", cfg.Redis.Addr, "error", err)
			return NewPassthrough(logger)
		}
		return &failOpen{backend: b, logger: logger}

	case BackendMemory:
		return &failOpen{backend: newMemoryBackend(cfg.Memory), logger: logger}

	default:
		return NewPassthrough(logger)
	}
}

// failOpen adapts a fallible backend to the transparent Cache contract.
// Backend errors become misses on read and no-ops on write; they are logged at
// warning level and never propagated.
type failOpen struct {
	backend backend
	logger  *observability.Logger
}

func (f *failOpen) Get(ctx context.Context, key string) []byte {
	val, err := f.backend.Get(ctx, key)
	if err != nil {
		f.logger.Warn("cache get failed, treating as miss", "key", key, "error", err)
		metrics.CacheOps.WithLabelValues(string(f.backend.Type()), "get", "error").Inc()
		return nil
	}
	if val == nil {
		metrics.CacheOps.WithLabelValues(string(f.backend.Type()), "get", "miss").Inc()
		return nil
	}
	metrics.CacheOps.WithLabelValues(string(f.backend.Type()), "get", "hit").Inc()
	return val
}

func (f *failOpen) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := f.backend.Set(ctx, key, value, ttl); err != nil {
		f.logger.Warn("cache set failed, skipping", "key", key, "error", err)
		metrics.CacheOps.WithLabelValues(string(f.backend.Type()), "set", "error").Inc()
		return
	}
	metrics.CacheOps.WithLabelValues(string(f.backend.Type()), "set", "ok").Inc()
}

func (f *failOpen) Delete(ctx context.Context, key string) {
	if err := f.backend.Delete(ctx, key); err != nil {
		f.logger.Warn("cache delete failed, skipping", "key", key, "error", err)
		metrics.CacheOps.WithLabelValues(string(f.backend.Type()), "del", "error").Inc()
		return
	}
	metrics.CacheOps.WithLabelValues(string(f.backend.Type()), "del", "ok").Inc()
}

func (f *failOpen) BackendType() BackendType {
	return f.backend.Type()
}
