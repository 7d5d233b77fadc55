package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceice666/sunflower/internal/source"
)

// stubProvider is a controllable catalog for registry tests.
type stubProvider struct {
	name      string
	results   map[string]string
	searchErr error
	lastQuery string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(query string, maxResults int) (map[string]string, error) {
	p.lastQuery = query
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return p.results, nil
}

func (p *stubProvider) GetTrack(id string) (source.Track, error) {
	if _, ok := p.results[id]; !ok {
		return nil, &TrackNotFoundError{ID: id}
	}
	return source.NewSineWaveTrack(440, 1), nil
}

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewRegistry(false)
	assert.Empty(t, r.AllProviders())

	r.Register(&stubProvider{name: "P1"})
	assert.Equal(t, []string{"P1"}, r.AllProviders())

	r.Register(&stubProvider{name: "P2"})
	assert.Equal(t, []string{"P1", "P2"}, r.AllProviders())

	r.Unregister("P1")
	assert.Equal(t, []string{"P2"}, r.AllProviders())

	// Absent names are a no-op.
	r.Unregister("nope")
	assert.Equal(t, []string{"P2"}, r.AllProviders())
}

func TestRegistryRegisterOverwritesOnCollision(t *testing.T) {
	r := NewRegistry(false)

	first := &stubProvider{name: "P", results: map[string]string{"a": "a"}}
	second := &stubProvider{name: "P", results: map[string]string{"b": "b"}}
	r.Register(first)
	r.Register(second)

	results := r.Search("q", NoLimit, nil)
	require.Contains(t, results, "P")
	assert.Contains(t, results["P"], "b")
}

func TestRegistrySearchToleratesPartialFailure(t *testing.T) {
	r := NewRegistry(false)
	r.Register(&stubProvider{name: "P1", results: map[string]string{"id1": "one", "id2": "two"}})
	r.Register(&stubProvider{name: "P2", searchErr: errors.New("backend down")})

	results := r.Search("x", 3, func(name string) bool {
		return name == "P1" || name == "P2"
	})

	require.Contains(t, results, "P1", "healthy provider contributes")
	assert.NotContains(t, results, "P2", "failing provider is omitted, not fatal")
	assert.Len(t, results["P1"], 2)
}

func TestRegistrySearchFilter(t *testing.T) {
	r := NewRegistry(false)
	r.Register(&stubProvider{name: "P1", results: map[string]string{"a": "a"}})
	r.Register(&stubProvider{name: "P2", results: map[string]string{"b": "b"}})

	results := r.Search("q", NoLimit, func(name string) bool { return name == "P2" })
	assert.NotContains(t, results, "P1")
	assert.Contains(t, results, "P2")

	// No provider passing the filter yields an empty result, not an error.
	results = r.Search("q", NoLimit, func(string) bool { return false })
	assert.Empty(t, results)
}

func TestRegistrySearchTrimsQuery(t *testing.T) {
	r := NewRegistry(false)
	stub := &stubProvider{name: "P", results: map[string]string{}}
	r.Register(stub)

	r.Search("  hello  ", NoLimit, nil)
	assert.Equal(t, "hello", stub.lastQuery)
}

func TestRegistryGetTrack(t *testing.T) {
	r := NewRegistry(false)
	r.Register(&stubProvider{name: "P", results: map[string]string{"hit": "Hit"}})

	track, err := r.GetTrack("P", "hit")
	require.NoError(t, err)
	assert.NotNil(t, track)

	_, err = r.GetTrack("P", "miss")
	var notFound *TrackNotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = r.GetTrack("ghost", "hit")
	var noProvider *ProviderNotFoundError
	require.ErrorAs(t, err, &noProvider)
	assert.Equal(t, "ghost", noProvider.Name)
}
