package mapview

import "github.com/finalquest/itinera/internal/kml"

// GoogleLabel is the white-on-pin number label Google Maps markers carry.
type GoogleLabel struct {
	Text       string `json:"text"`
	Color      string `json:"color"`
	FontSize   string `json:"fontSize"`
	FontWeight string `json:"fontWeight"`
}

// GoogleMarker is one marker entry of a Google Maps render plan.
type GoogleMarker struct {
	Marker
	Label GoogleLabel `json:"label"`
}

// GoogleBackend renders the map contract as a Google Maps plan: numbered
// label markers with InfoWindow popups. The browser applies the plan with
// the google.maps API.
type GoogleBackend struct {
	markers   []GoogleMarker
	openPopup int
	fit       *kml.BoundingBox
	fitCalls  int
}

// NewGoogleBackend creates an empty Google Maps backend.
func NewGoogleBackend() *GoogleBackend {
	return &GoogleBackend{}
}

// PlaceMarker implements Backend.
func (g *GoogleBackend) PlaceMarker(m Marker) {
	g.markers = append(g.markers, GoogleMarker{
		Marker: m,
		Label: GoogleLabel{
			Text:       itoa(m.Number),
			Color:      "white",
			FontSize:   "14px",
			FontWeight: "bold",
		},
	})
}

// ClearAll implements Backend.
func (g *GoogleBackend) ClearAll() {
	g.markers = nil
	g.openPopup = 0
	g.fit = nil
}

// FitBounds implements Backend.
func (g *GoogleBackend) FitBounds(box kml.BoundingBox) {
	b := box
	g.fit = &b
	g.fitCalls++
}

// OpenPopup implements Backend. Opening a popup closes the previous one;
// the plan records only the single currently open InfoWindow.
func (g *GoogleBackend) OpenPopup(number int) {
	g.openPopup = number
}

// Plan returns the render plan for the browser.
func (g *GoogleBackend) Plan() RenderPlan {
	return RenderPlan{
		Backend:   "google",
		Google:    g.markers,
		Fit:       g.fit,
		OpenPopup: g.openPopup,
	}
}

// FitCalls reports how many times the view was fitted since creation.
func (g *GoogleBackend) FitCalls() int { return g.fitCalls }

// MarkerCount reports how many markers are currently placed.
func (g *GoogleBackend) MarkerCount() int { return len(g.markers) }
