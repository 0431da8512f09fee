package policy

import (
	"context"
	"sync"
)

// Store persists and retrieves per-tenant policy. GetPolicy returns nil, nil
// for an unknown tenant; absence is a signal, never an error.
type Store interface {
	GetPolicy(ctx context.Context, tenantID string) (*TenantPolicy, error)
	SetPolicy(ctx context.Context, policy *TenantPolicy) error
	DeletePolicy(ctx context.Context, tenantID string) error
}

// MemoryStore is an in-process Store for tests and non-production fallback.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*TenantPolicy
}

// NewMemoryStore creates an empty in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: make(map[string]*TenantPolicy)}
}

// GetPolicy returns a deep copy of the stored policy, or nil when absent.
func (s *MemoryStore) GetPolicy(ctx context.Context, tenantID string) (*TenantPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policies[tenantID].Clone(), nil
}

// SetPolicy stores a deep copy of the policy keyed by its tenant ID.
func (s *MemoryStore) SetPolicy(ctx context.Context, policy *TenantPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.TenantID] = policy.Clone()
	return nil
}

// DeletePolicy removes the tenant's policy. Deleting an absent tenant is a
// no-op.
func (s *MemoryStore) DeletePolicy(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, tenantID)
	return nil
}
