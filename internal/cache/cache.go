// Package cache provides the transparent failover cache used by the policy
// store and other read-through consumers. The factory never returns nil and
// backend failures are indistinguishable from cache misses, so callers need no
// conditional logic around availability.
package cache

import (
	"context"
	"time"
)

// BackendType identifies the configured cache backend.
type BackendType string

const (
	BackendRedis       BackendType = "redis"
	BackendMemory      BackendType = "memory"
	BackendPassthrough BackendType = "passthrough"
)

// Cache is the transparent cache contract. Get returns nil on a miss or on
// any backend failure; Set and Delete never fail from the caller's point of
// view. The backing source of truth stays authoritative.
type Cache interface {
	Get(ctx context.Context, key string) []byte
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	BackendType() BackendType
}

// backend is the fallible inner contract implemented per store. The fail-open
// wrapper in factory.go converts its errors into misses and no-ops.
type backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Type() BackendType
}
