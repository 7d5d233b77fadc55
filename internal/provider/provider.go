// Package provider contains the track catalog plug-ins and their registry.
// A provider searches a catalog and materializes a track into a decodable
// source.
package provider

import (
	"fmt"

	"github.com/iceice666/sunflower/internal/source"
)

// NoLimit disables the result cap on Search.
const NoLimit = -1

// Provider is a catalog plug-in.
//
// Name must be non-empty, free of whitespace, and unique within a registry.
// Search may be expensive and may block on process or filesystem I/O; it
// returns a mapping of track id to display string. GetTrack materializes a
// track by the id a previous search surfaced.
type Provider interface {
	Name() string
	Search(query string, maxResults int) (map[string]string, error)
	GetTrack(id string) (source.Track, error)
}

// TrackNotFoundError reports an id the provider cannot resolve.
type TrackNotFoundError struct {
	ID string
}

func (e *TrackNotFoundError) Error() string {
	return fmt.Sprintf("No such track: %s", e.ID)
}

// ProviderNotFoundError reports a registry lookup miss.
type ProviderNotFoundError struct {
	Name string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("no such provider: %s", e.Name)
}

// InvalidQueryError reports a search query the provider cannot interpret.
type InvalidQueryError struct {
	Query string
	Err   error
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query %q: %v", e.Query, e.Err)
}

func (e *InvalidQueryError) Unwrap() error { return e.Err }
