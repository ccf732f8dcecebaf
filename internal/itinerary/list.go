// Package itinerary renders the sidebar view of an itinerary's point list.
package itinerary

import (
	"fmt"
	"html"
	"strings"

	"github.com/finalquest/itinera/internal/kml"
)

// ListItem is one numbered entry of the sidebar list.
type ListItem struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// List is the sidebar rendering of an itinerary: a header plus numbered
// items in the same order, with the same numbering, as the map markers.
type List struct {
	Header string     `json:"header"`
	Items  []ListItem `json:"items"`
}

// Build derives the sidebar list from the extracted point set. It consumes
// the exact slice the marker synchronizer consumes, so list and map can
// never disagree on membership or numbering. An empty set yields a
// "(0)" header with an empty item list, not an error.
func Build(points []kml.ItineraryPoint) List {
	items := make([]ListItem, len(points))
	for i, p := range points {
		items[i] = ListItem{Number: p.Index, Name: p.Name, Address: p.Address}
	}
	return List{
		Header: fmt.Sprintf("Puntos en el itinerario (%d)", len(points)),
		Items:  items,
	}
}

// HTML renders the list as display markup for the sidebar surface.
// Names and addresses are user-authored KML text and are escaped.
func (l List) HTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>%s</h3><ul>", html.EscapeString(l.Header))
	for _, it := range l.Items {
		b.WriteString("<li><strong>")
		b.WriteString(html.EscapeString(it.Name))
		b.WriteString("</strong>")
		if it.Address != "" {
			b.WriteString("<br><small>")
			b.WriteString(html.EscapeString(it.Address))
			b.WriteString("</small>")
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
