package provider

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/iceice666/sunflower/internal/source"
)

// Registry maps provider names to instances and multiplexes searches across
// them. One mutex guards the map; provider calls happen under it, which is
// tolerated because the registry is not on the audio hot path.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	debug     bool
}

func NewRegistry(debug bool) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		debug:     debug,
	}
}

// Register inserts a provider under its name, overwriting on collision.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[p.Name()] = p
	if r.debug {
		log.Printf("[PROVIDER] registered %q", p.Name())
	}
}

// Unregister removes a provider; absent names are a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.providers, name)
	if r.debug {
		log.Printf("[PROVIDER] unregistered %q", name)
	}
}

// AllProviders returns the registered names, sorted.
func (r *Registry) AllProviders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search fans the trimmed query out to every provider whose name passes the
// filter. A provider failure is logged and that provider is omitted; the
// overall search still succeeds. The result maps provider name to its
// id→display entries.
func (r *Registry) Search(query string, maxResults int, filter func(string) bool) map[string]map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	query = strings.TrimSpace(query)
	result := make(map[string]map[string]string)

	for name, p := range r.providers {
		if filter != nil && !filter(name) {
			continue
		}

		entries, err := p.Search(query, maxResults)
		if err != nil {
			log.Printf("[PROVIDER] unable to search with %s: %v", name, err)
			continue
		}
		result[name] = entries
	}

	return result
}

// GetTrack materializes a track through the named provider.
func (r *Registry) GetTrack(providerName, id string) (source.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[providerName]
	if !ok {
		return nil, &ProviderNotFoundError{Name: providerName}
	}
	return p.GetTrack(id)
}
