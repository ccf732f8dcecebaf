// Package kmlsource retrieves named KML itineraries from a configured
// location: a GitHub repository folder or a local directory.
package kmlsource

import "context"

// ItineraryRef identifies one available itinerary document.
type ItineraryRef struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Source lists available itineraries and fetches one by name. Fetch fails
// with a typed error (apperr.ErrNotFound, apperr.ErrTransport), never a
// partial result.
type Source interface {
	List(ctx context.Context) ([]ItineraryRef, error)
	Fetch(ctx context.Context, name string) ([]byte, error)
}
