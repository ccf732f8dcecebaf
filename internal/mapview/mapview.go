// Package mapview synchronizes an itinerary's point set onto a map surface.
//
// The map surface is abstracted behind Backend; the Google Maps and Leaflet
// implementations are two renderings of one contract, selected at startup.
// All mutable view state (placed markers, the open popup) lives in the
// Synchronizer and the backend plan, never in package globals.
package mapview

import (
	"fmt"
	"html"

	"github.com/finalquest/itinera/internal/kml"
)

// Marker is one numbered marker to place on the map. Number is 1-based among
// successfully parsed points and matches the sidebar list numbering.
type Marker struct {
	Number  int     `json:"number"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	// Popup is the click-activated popup markup: "{number}. {name}" plus,
	// if present, the address on a second line.
	Popup string `json:"popup"`
}

// Backend is the capability set a map surface must provide. Implementations
// must make PlaceMarker/ClearAll/FitBounds/OpenPopup behave identically at
// the contract level; only presentation details (labels, icons, tiles) may
// differ.
type Backend interface {
	// PlaceMarker adds a numbered marker with an attached popup.
	PlaceMarker(m Marker)
	// ClearAll removes every marker and closes any open popup.
	ClearAll()
	// FitBounds instructs the surface to frame the given region.
	FitBounds(box kml.BoundingBox)
	// OpenPopup opens the popup of the marker with the given number,
	// closing any previously open popup first. At most one popup is open
	// at a time.
	OpenPopup(number int)
}

// ViewState is the synchronizer's record of what is currently on the map.
type ViewState struct {
	Markers   []Marker `json:"markers"`
	OpenPopup int      `json:"openPopup,omitempty"` // marker number, 0 when none
	FitCalls  int      `json:"-"`                   // fit invocations this state's lifetime
}

// Synchronizer owns the map view state and drives a Backend.
type Synchronizer struct {
	backend Backend
	state   ViewState
}

// NewSynchronizer creates a synchronizer for the given backend.
func NewSynchronizer(backend Backend) *Synchronizer {
	return &Synchronizer{backend: backend}
}

// Sync replaces the map contents with the given point set: it clears all
// previous markers and popups, places one numbered marker per point in
// order, and fits the view to the accumulated bounds. With an empty set the
// map ends up with zero markers and the current view is left unchanged (no
// fit call). Sync with the same input is idempotent.
func (s *Synchronizer) Sync(points []kml.ItineraryPoint) ViewState {
	s.backend.ClearAll()
	s.state = ViewState{}

	for _, p := range points {
		m := Marker{
			Number:  p.Index,
			Name:    p.Name,
			Address: p.Address,
			Lat:     p.Lat,
			Lng:     p.Lng,
			Popup:   popupContent(p),
		}
		s.backend.PlaceMarker(m)
		s.state.Markers = append(s.state.Markers, m)
	}

	if box, ok := kml.Bounds(points); ok {
		s.backend.FitBounds(box)
		s.state.FitCalls++
	}
	return s.state
}

// OpenPopup opens the popup for the given marker number. Any previously open
// popup is closed first; numbers without a placed marker are ignored.
func (s *Synchronizer) OpenPopup(number int) {
	found := false
	for _, m := range s.state.Markers {
		if m.Number == number {
			found = true
			break
		}
	}
	if !found {
		return
	}
	s.backend.OpenPopup(number)
	s.state.OpenPopup = number
}

// State returns a copy of the current view state.
func (s *Synchronizer) State() ViewState {
	return s.state
}

// popupContent builds the popup markup shared by both backends.
func popupContent(p kml.ItineraryPoint) string {
	content := fmt.Sprintf("<strong>%d. %s</strong>", p.Index, html.EscapeString(p.Name))
	if p.Address != "" {
		content += fmt.Sprintf("<br><small>%s</small>", html.EscapeString(p.Address))
	}
	return content
}
