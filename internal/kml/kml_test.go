package kml

import (
	"errors"
	"testing"

	"github.com/finalquest/itinera/internal/apperr"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Placemark>
      <name>Temple</name>
      <ExtendedData>
        <Data name="name"><value>Senso-ji</value></Data>
        <Data name="address"><value>2-3-1 Asakusa, Taito</value></Data>
      </ExtendedData>
      <Point><coordinates>139.7967,35.7148,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Shibuya Crossing</name>
      <Point><coordinates>139.7004,35.6595</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Walking route</name>
      <LineString><coordinates>139.79,35.71,0 139.70,35.66,0</coordinates></LineString>
    </Placemark>
  </Document>
</kml>`

func TestParse_Sample(t *testing.T) {
	doc, err := Parse([]byte(sampleKML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Placemarks) != 3 {
		t.Fatalf("placemarks = %d, want 3", len(doc.Placemarks))
	}
	if doc.Placemarks[0].Point == nil {
		t.Error("first placemark lost its Point geometry")
	}
	if doc.Placemarks[2].Point != nil || doc.Placemarks[2].LineString == nil {
		t.Error("route placemark should carry only a LineString")
	}
}

func TestParse_FormatPrecheck(t *testing.T) {
	_, err := Parse([]byte("just some text, nothing KML about it"))
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}

func TestParse_MalformedXML(t *testing.T) {
	_, err := Parse([]byte("<kml><Placemark><name>broken</Placemark></kml>"))
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParse_EmptyDocumentIsNotAnError(t *testing.T) {
	doc, err := Parse([]byte(`<kml xmlns="http://www.opengis.net/kml/2.2"><Document/></kml>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Placemarks) != 0 {
		t.Errorf("placemarks = %d, want 0", len(doc.Placemarks))
	}
}

func TestResolveName_Precedence(t *testing.T) {
	pm := Placemark{
		Name: "Temple",
		ExtendedData: ExtendedData{Data: []DataEntry{
			{Name: "name", Value: "Senso-ji"},
		}},
	}
	if got := ResolveName(pm, 0); got != "Senso-ji" {
		t.Errorf("name = %q, want Senso-ji", got)
	}

	pm.ExtendedData = ExtendedData{}
	if got := ResolveName(pm, 0); got != "Temple" {
		t.Errorf("name = %q, want Temple", got)
	}

	pm.Name = ""
	if got := ResolveName(pm, 4); got != "Punto 5" {
		t.Errorf("name = %q, want Punto 5", got)
	}
}

func TestResolveName_Deterministic(t *testing.T) {
	pm := Placemark{ExtendedData: ExtendedData{Data: []DataEntry{{Name: "name", Value: "Ueno Park"}}}}
	first := ResolveName(pm, 2)
	for i := 0; i < 3; i++ {
		if got := ResolveName(pm, 2); got != first {
			t.Fatalf("resolution not deterministic: %q vs %q", got, first)
		}
	}
}

func TestResolveAddress_AbsentIsEmpty(t *testing.T) {
	if got := ResolveAddress(Placemark{}); got != "" {
		t.Errorf("address = %q, want empty", got)
	}
}

func TestExtractPoints_FiltersAndNumbers(t *testing.T) {
	doc, err := Parse([]byte(sampleKML))
	if err != nil {
		t.Fatal(err)
	}
	points := ExtractPoints(doc)
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2 (route excluded)", len(points))
	}
	if points[0].Index != 1 || points[1].Index != 2 {
		t.Errorf("indices = %d,%d, want 1,2", points[0].Index, points[1].Index)
	}
	if points[0].Name != "Senso-ji" {
		t.Errorf("name = %q, want Senso-ji (ExtendedData wins)", points[0].Name)
	}
	if points[0].Address != "2-3-1 Asakusa, Taito" {
		t.Errorf("address = %q", points[0].Address)
	}
	if points[0].Lat != 35.7148 || points[0].Lng != 139.7967 {
		t.Errorf("position = (%v,%v), want (35.7148,139.7967)", points[0].Lat, points[0].Lng)
	}
}

func TestExtractPoints_BadCoordinatesDropped(t *testing.T) {
	raw := `<kml><Document>
	  <Placemark><name>Good</name><Point><coordinates>139.6503,35.6762,0</coordinates></Point></Placemark>
	  <Placemark><name>Bad</name><Point><coordinates>abc,35.6</coordinates></Point></Placemark>
	  <Placemark><name>Short</name><Point><coordinates>139.1</coordinates></Point></Placemark>
	  <Placemark><name>Also good</name><Point><coordinates>140.0,36.0</coordinates></Point></Placemark>
	</Document></kml>`
	doc, err := Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	points := ExtractPoints(doc)
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	// Dropped placemarks must not consume number slots.
	if points[1].Name != "Also good" || points[1].Index != 2 {
		t.Errorf("second point = %q #%d, want Also good #2", points[1].Name, points[1].Index)
	}
}

func TestParseCoordinates(t *testing.T) {
	lat, lng, ok := parseCoordinates("139.6503,35.6762,0")
	if !ok || lng != 139.6503 || lat != 35.6762 {
		t.Errorf("got (%v,%v,%v), want (35.6762,139.6503,true)", lat, lng, ok)
	}
	if _, _, ok := parseCoordinates("abc,35.6"); ok {
		t.Error("non-numeric longitude accepted")
	}
	if _, _, ok := parseCoordinates("139.1"); ok {
		t.Error("single-component tuple accepted")
	}
	if _, _, ok := parseCoordinates(""); ok {
		t.Error("empty coordinates accepted")
	}
}

func TestBounds(t *testing.T) {
	points := []ItineraryPoint{
		{Index: 1, Lat: 35.0, Lng: 139.0},
		{Index: 2, Lat: 36.0, Lng: 140.0},
	}
	box, ok := Bounds(points)
	if !ok {
		t.Fatal("expected bounds for non-empty set")
	}
	if !box.Contains(35.0, 139.0) || !box.Contains(36.0, 140.0) {
		t.Errorf("box %+v does not contain both points", box)
	}
	if lat, lng := box.Center(); lat != 35.5 || lng != 139.5 {
		t.Errorf("center = (%v,%v), want (35.5,139.5)", lat, lng)
	}

	if _, ok := Bounds(nil); ok {
		t.Error("expected ok=false for empty set")
	}
}
