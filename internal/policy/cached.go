package policy

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tidemill/llmgate/internal/cache"
	"github.com/tidemill/llmgate/internal/observability"
)

// DefaultCacheTTL is the default lifetime of a cached tenant policy.
const DefaultCacheTTL = 300 * time.Second

// CachedStore decorates a durable Store with a transparent cache. Reads go
// through the cache; writes go to the durable store first and then invalidate
// the cache entry, so a concurrent reader never observes a policy that failed
// to persist.
type CachedStore struct {
	inner  Store
	cache  cache.Cache
	ttl    time.Duration
	logger *observability.Logger
}

// NewCachedStore wraps the durable store with the given cache. A zero ttl
// selects DefaultCacheTTL.
func NewCachedStore(inner Store, c cache.Cache, ttl time.Duration, logger *observability.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CachedStore{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func cacheKey(tenantID string) string {
	return "policy:" + tenantID
}

// GetPolicy checks the cache first, falls back to the durable store on a
// miss, and repopulates the cache with the result. Unknown tenants are not
// negatively cached.
func (s *CachedStore) GetPolicy(ctx context.Context, tenantID string) (*TenantPolicy, error) {
	key := cacheKey(tenantID)

	if data := s.cache.Get(ctx, key); data != nil {
		var p TenantPolicy
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		// A corrupt entry behaves like a miss and gets overwritten below.
		s.logger.Warn("discarding undecodable cached policy", "tenant_id", tenantID)
	}

	p, err := s.inner.GetPolicy(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	if data, err := json.Marshal(p); err == nil {
		s.cache.Set(ctx, key, data, s.ttl)
	}
	return p, nil
}

// SetPolicy writes through to the durable store first, then invalidates the
// cache entry. The entry is deliberately not re-populated here.
func (s *CachedStore) SetPolicy(ctx context.Context, policy *TenantPolicy) error {
	if err := s.inner.SetPolicy(ctx, policy); err != nil {
		return err
	}
	s.cache.Delete(ctx, cacheKey(policy.TenantID))
	return nil
}

// DeletePolicy removes the policy from the durable store, then the cache.
func (s *CachedStore) DeletePolicy(ctx context.Context, tenantID string) error {
	if err := s.inner.DeletePolicy(ctx, tenantID); err != nil {
		return err
	}
	s.cache.Delete(ctx, cacheKey(tenantID))
	return nil
}
