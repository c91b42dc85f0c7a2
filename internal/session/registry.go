// SPDX-License-Identifier: MPL-2.0

package session

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type (
	// Provider returns completion candidates for a word prefix.
	Provider func(prefix string) []string

	// Registry maps completion keys to providers. It is shared by
	// reference between the primary session and the background
	// execution context, and must be safe for concurrent use: the
	// deferred block registers providers while the primary session
	// reads them.
	Registry struct {
		mu        sync.RWMutex
		providers map[string]Provider
	}
)

// NewRegistry creates an empty completion registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// StaticProvider completes from a fixed word list.
func StaticProvider(words ...string) Provider {
	return func(prefix string) []string {
		var out []string
		for _, w := range words {
			if prefix == "" || len(prefix) <= len(w) && w[:len(prefix)] == prefix {
				out = append(out, w)
			}
		}
		return out
	}
}

// Register installs a provider under key, replacing any previous one.
func (r *Registry) Register(key string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[key] = p
}

// Lookup returns the provider registered under key.
func (r *Registry) Lookup(key string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[key]
	return p, ok
}

// Keys returns the registered completion keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := maps.Keys(r.providers)
	slices.Sort(keys)
	return keys
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
