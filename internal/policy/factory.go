package policy

import (
	"time"

	"github.com/tidemill/llmgate/internal/cache"
	"github.com/tidemill/llmgate/internal/observability"
)

// StoreConfig selects and configures the policy store.
type StoreConfig struct {
	// Backend is "postgres" or "memory". Empty selects memory.
	Backend  string         `yaml:"backend"`
	Postgres PostgresConfig `yaml:"postgres"`
	// CacheTTL is the policy cache lifetime when a cache is supplied.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// NewStore builds the policy store for the given configuration. Selection
// order: cached durable store when both a durable backend and a real cache
// backend are available, durable store alone otherwise, and the in-memory
// store as a non-production fallback.
func NewStore(cfg StoreConfig, c cache.Cache, logger *observability.Logger) (Store, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	if cfg.Backend == "postgres" {
		durable, err := NewPostgresStore(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if c != nil && c.BackendType() != cache.BackendPassthrough {
			return NewCachedStore(durable, c, cfg.CacheTTL, logger), nil
		}
		return durable, nil
	}

	logger.Warn("using in-memory policy store, policies will not survive restarts")
	return NewMemoryStore(), nil
}
