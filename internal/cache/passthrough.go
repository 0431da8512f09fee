package cache

import (
	"context"
	"time"

	"github.com/tidemill/llmgate/internal/observability"
)

// passthrough is the no-op cache used when no backend is configured or the
// configured backend is unreachable. Get always misses; writes warn once per
// call and do nothing, so the backing source of truth serves every read.
type passthrough struct {
	logger *observability.Logger
}

// NewPassthrough creates the no-op cache implementation.
func NewPassthrough(logger *observability.Logger) Cache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &passthrough{logger: logger}
}

func (p *passthrough) Get(ctx context.Context, key string) []byte {
	return nil
}

func (p *passthrough) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	p.logger.Warn("cache set ignored, no backend configured", "key", key)
}

func (p *passthrough) Delete(ctx context.Context, key string) {
	p.logger.Warn("cache delete ignored, no backend configured", "key", key)
}

func (p *passthrough) BackendType() BackendType {
	return BackendPassthrough
}
