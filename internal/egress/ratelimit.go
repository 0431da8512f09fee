package egress

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	llmerrors "github.com/tidemill/llmgate/pkg/errors"
)

// RateLimitConfig configures the per-tenant rate-limit extension aspect.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RateLimitAspect is an example caller-supplied pipeline extension. It
// applies a per-tenant token bucket before any provider I/O, independent of
// the egress mode: rate limiting is capacity protection, not data guarding.
func RateLimitAspect(cfg RateLimitConfig) Aspect {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(tenantID string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[tenantID]
		if !ok {
			l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
			limiters[tenantID] = l
		}
		return l
	}

	return func(ctx context.Context, gc Context, next Next) (Context, error) {
		if !limiterFor(gc.TenantID).Allow() {
			return gc, llmerrors.NewRateLimitError(gc.ProviderID, requestModel(gc),
				"tenant request rate exceeded")
		}
		return next(ctx, gc)
	}
}
