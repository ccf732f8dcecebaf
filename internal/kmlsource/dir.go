package kmlsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/finalquest/itinera/internal/apperr"
)

// Dir serves itineraries from a local directory of .kml files. It is the
// offline alternative to the GitHub source.
type Dir struct {
	root string
}

// NewDir creates a Dir source. The directory must already exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("kmlsource: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// List returns the .kml files directly under the root, sorted by name.
func (d *Dir) List(_ context.Context) ([]ItineraryRef, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: list: %w", err)
	}
	var refs []ItineraryRef
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".kml") {
			continue
		}
		refs = append(refs, ItineraryRef{Name: e.Name()})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Fetch reads the named itinerary file.
func (d *Dir) Fetch(_ context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("kmlsource: itinerary %s: %w", name, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("kmlsource: read %s: %w", name, err)
	}
	return data, nil
}

// readAll is shared with the GitHub source.
func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: read body: %v: %w", err, apperr.ErrTransport)
	}
	return data, nil
}
