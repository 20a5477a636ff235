package social

import (
	"sort"
	"sync"
)

// Registry holds the configured providers. Providers are registered
// explicitly at startup; lookups by unknown name fail with
// ErrProviderNotFound instead of falling back to a default.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: map[string]Provider{},
	}
}

// Register adds a provider under its Name. Registering a second provider
// with the same name replaces the first.
func (r *Registry) Register(provider Provider) *Registry {
	if provider == nil {
		return r
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[provider.Name()] = provider
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	return provider, nil
}

// Has reports whether a provider is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
