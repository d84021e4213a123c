package provider

import (
	"fmt"
	"sort"
	"sync"

	"freightx/internal/domain"
	"freightx/internal/port"
)

// Registry holds the providers available to the orchestrator. It is filled once at start-up
// and only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderID]port.Provider
}

// NewRegistry creates a registry with the given providers.
func NewRegistry(providers ...port.Provider) *Registry {
	r := &Registry{providers: make(map[domain.ProviderID]port.Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider under its descriptor name.
func (r *Registry) Register(p port.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Descriptor().Name] = p
}

// Get returns the provider registered under id.
func (r *Registry) Get(id domain.ProviderID) (port.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, string(id))
	}
	return p, nil
}

// Descriptors lists all registered providers sorted by name.
func (r *Registry) Descriptors() []port.ProviderDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]port.ProviderDescriptor, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
