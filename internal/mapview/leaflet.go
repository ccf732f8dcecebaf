package mapview

import (
	"fmt"
	"strconv"

	"github.com/finalquest/itinera/internal/kml"
)

// LeafletIcon is the numbered divIcon a Leaflet marker uses as its pin.
type LeafletIcon struct {
	ClassName  string `json:"className"`
	HTML       string `json:"html"`
	IconSize   [2]int `json:"iconSize"`
	IconAnchor [2]int `json:"iconAnchor"`
}

// LeafletMarker is one marker entry of a Leaflet render plan.
type LeafletMarker struct {
	Marker
	Icon LeafletIcon `json:"icon"`
}

// TileLayer describes the OpenStreetMap tile source the Leaflet map uses.
type TileLayer struct {
	URLTemplate string `json:"urlTemplate"`
	Attribution string `json:"attribution"`
}

// LeafletBackend renders the map contract as a Leaflet/OpenStreetMap plan:
// numbered divIcon markers with bound popups over an OSM tile layer. It is
// the fallback surface when Google Maps is unavailable.
type LeafletBackend struct {
	markers   []LeafletMarker
	openPopup int
	fit       *kml.BoundingBox
	fitCalls  int
}

// NewLeafletBackend creates an empty Leaflet backend.
func NewLeafletBackend() *LeafletBackend {
	return &LeafletBackend{}
}

// PlaceMarker implements Backend.
func (l *LeafletBackend) PlaceMarker(m Marker) {
	l.markers = append(l.markers, LeafletMarker{
		Marker: m,
		Icon: LeafletIcon{
			ClassName:  "numbered-pin",
			HTML:       fmt.Sprintf(`<div class="pin-number">%d</div>`, m.Number),
			IconSize:   [2]int{30, 30},
			IconAnchor: [2]int{15, 30},
		},
	})
}

// ClearAll implements Backend.
func (l *LeafletBackend) ClearAll() {
	l.markers = nil
	l.openPopup = 0
	l.fit = nil
}

// FitBounds implements Backend.
func (l *LeafletBackend) FitBounds(box kml.BoundingBox) {
	b := box
	l.fit = &b
	l.fitCalls++
}

// OpenPopup implements Backend.
func (l *LeafletBackend) OpenPopup(number int) {
	l.openPopup = number
}

// Plan returns the render plan for the browser.
func (l *LeafletBackend) Plan() RenderPlan {
	return RenderPlan{
		Backend: "leaflet",
		Leaflet: l.markers,
		Tiles: &TileLayer{
			URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors",
		},
		Fit:       l.fit,
		OpenPopup: l.openPopup,
	}
}

// FitCalls reports how many times the view was fitted since creation.
func (l *LeafletBackend) FitCalls() int { return l.fitCalls }

// MarkerCount reports how many markers are currently placed.
func (l *LeafletBackend) MarkerCount() int { return len(l.markers) }

// itoa keeps the label construction readable at the call site.
func itoa(n int) string { return strconv.Itoa(n) }
