// Package kml parses KML itineraries into normalized placemark and point
// values. It is the single source of the point set rendered by the sidebar
// list and by both map backends, so filtering and numbering happen here,
// exactly once.
package kml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/finalquest/itinera/internal/apperr"
)

// Placemark is one named entry in a KML document: a point of interest or a
// route segment. Only the elements the app consumes are decoded.
type Placemark struct {
	Name         string       `xml:"name"`
	ExtendedData ExtendedData `xml:"ExtendedData"`
	Point        *Geometry    `xml:"Point"`
	LineString   *Geometry    `xml:"LineString"`
}

// ExtendedData carries the typed key/value metadata a Placemark may attach.
type ExtendedData struct {
	Data []DataEntry `xml:"Data"`
}

// DataEntry is a single ExtendedData entry: <Data name="..."><value>...</value></Data>.
type DataEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// Geometry holds the raw coordinates text of a Point or LineString.
type Geometry struct {
	Coordinates string `xml:"coordinates"`
}

// Document is the ordered sequence of placemarks extracted from one KML file.
type Document struct {
	Placemarks []Placemark
}

// Parse turns raw KML text into a Document.
//
// A payload lacking both a <kml> root marker and any <Placemark> element is
// rejected with apperr.ErrFormat before XML parsing is attempted. XML that is
// not well-formed fails with apperr.ErrParse. A well-formed document with
// zero placemarks is a valid, empty result.
func Parse(data []byte) (*Document, error) {
	text := string(data)
	if !strings.Contains(text, "<kml") && !strings.Contains(text, "<Placemark") {
		return nil, fmt.Errorf("kml: no kml root or Placemark element: %w", apperr.ErrFormat)
	}

	// Placemarks may sit at any depth (Document, Folder, ...), so walk the
	// token stream and decode each one where it appears, in document order.
	dec := xml.NewDecoder(bytes.NewReader(data))
	var doc Document
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kml: %v: %w", err, apperr.ErrParse)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm Placemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, fmt.Errorf("kml: decode Placemark: %v: %w", err, apperr.ErrParse)
		}
		doc.Placemarks = append(doc.Placemarks, pm)
	}
	return &doc, nil
}

// value returns the trimmed text of the entry with the given name attribute,
// or "" when absent.
func (e ExtendedData) value(name string) string {
	for _, d := range e.Data {
		if d.Name == name {
			return strings.TrimSpace(d.Value)
		}
	}
	return ""
}

// ResolveName resolves the display name of a placemark at the given 0-based
// position. Precedence: ExtendedData[name="name"] value, then the direct
// <name> element, then the synthesized "Punto {position+1}" fallback.
// Pure: same input, same output, no side effects.
func ResolveName(pm Placemark, position int) string {
	if v := pm.ExtendedData.value("name"); v != "" {
		return v
	}
	if v := strings.TrimSpace(pm.Name); v != "" {
		return v
	}
	return fmt.Sprintf("Punto %d", position+1)
}

// ResolveAddress returns the placemark's address from
// ExtendedData[name="address"], or "" when absent. Absence is not an error.
func ResolveAddress(pm Placemark) string {
	return pm.ExtendedData.value("address")
}

// ItineraryPoint is a pure value derived from a point placemark. Index is the
// 1-based marker number among successfully parsed points; the list renderer
// and both map backends number from this same field.
type ItineraryPoint struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// ExtractPoints filters the document to placemarks carrying a Point geometry,
// in document order, and parses their coordinates. Placemarks whose
// coordinates fail to parse as finite numbers are silently dropped: they do
// not consume a number slot anywhere. Route placemarks (LineString only) are
// excluded before numbering.
func ExtractPoints(doc *Document) []ItineraryPoint {
	var out []ItineraryPoint
	for _, pm := range doc.Placemarks {
		if pm.Point == nil {
			continue
		}
		lat, lng, ok := parseCoordinates(pm.Point.Coordinates)
		if !ok {
			continue
		}
		pos := len(out)
		out = append(out, ItineraryPoint{
			Index:   pos + 1,
			Name:    ResolveName(pm, pos),
			Address: ResolveAddress(pm),
			Lat:     lat,
			Lng:     lng,
		})
	}
	return out
}

// parseCoordinates parses the first "longitude,latitude[,altitude]" tuple of
// a KML coordinates text. Altitude is ignored. Both components must parse as
// finite numbers.
func parseCoordinates(text string) (lat, lng float64, ok bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return 0, 0, false
	}
	parts := strings.Split(fields[0], ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLng != nil || errLat != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return 0, 0, false
	}
	return lat, lng, true
}
