package mapview

import "github.com/finalquest/itinera/internal/kml"

// RenderPlan is the backend-specific result of a synchronization pass,
// serialized for the browser to apply with its map library. Exactly one of
// Google or Leaflet is populated. Fit is nil when no marker was placed, in
// which case the browser leaves the current view unchanged.
type RenderPlan struct {
	Backend   string           `json:"backend"`
	Google    []GoogleMarker   `json:"googleMarkers,omitempty"`
	Leaflet   []LeafletMarker  `json:"leafletMarkers,omitempty"`
	Tiles     *TileLayer       `json:"tiles,omitempty"`
	Fit       *kml.BoundingBox `json:"fit,omitempty"`
	OpenPopup int              `json:"openPopup,omitempty"`
}

// PlanBackend is a Backend that can emit a RenderPlan. Both concrete
// backends satisfy it; call sites that only synchronize depend on Backend.
type PlanBackend interface {
	Backend
	Plan() RenderPlan
}

// ForName returns the backend for a user-selectable name. Unknown names fall
// back to Leaflet, the surface that needs no API key.
func ForName(name string) PlanBackend {
	if name == "google" {
		return NewGoogleBackend()
	}
	return NewLeafletBackend()
}
