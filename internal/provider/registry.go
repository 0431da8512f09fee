package provider

import "sync"

// Registry maps provider ids to clients. Lookup of an unregistered id is a
// configuration error for the caller, never retried.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds or replaces the client for a provider id.
func (r *Registry) Register(providerID string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[providerID] = client
}

// Get returns the client for a provider id.
func (r *Registry) Get(providerID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[providerID]
	return c, ok
}

// List returns all registered provider ids.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}
