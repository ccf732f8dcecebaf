package kmlsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/finalquest/itinera/internal/apperr"
)

// GitHub serves itineraries from a folder of a public GitHub repository,
// listing via the contents API and fetching via raw.githubusercontent.com.
type GitHub struct {
	Owner  string
	Repo   string
	Branch string
	Folder string

	client *http.Client
	apiURL string // overridable for tests
	rawURL string
}

// NewGitHub creates a GitHub source for the given repository coordinates.
func NewGitHub(owner, repo, branch, folder string) *GitHub {
	return &GitHub{
		Owner:  owner,
		Repo:   repo,
		Branch: branch,
		Folder: folder,
		client: &http.Client{Timeout: 10 * time.Second},
		apiURL: "https://api.github.com",
		rawURL: "https://raw.githubusercontent.com",
	}
}

type githubEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// List returns the .kml files of the configured folder, sorted by name.
func (g *GitHub) List(ctx context.Context) ([]ItineraryRef, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiURL, g.Owner, g.Repo, g.Folder)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: build request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: list itineraries: %v: %w", err, apperr.ErrTransport)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kmlsource: list itineraries: status %d: %w", resp.StatusCode, apperr.ErrTransport)
	}

	var entries []githubEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("kmlsource: decode listing: %v: %w", err, apperr.ErrTransport)
	}

	var refs []ItineraryRef
	for _, e := range entries {
		if e.Type != "file" || !strings.HasSuffix(e.Name, ".kml") {
			continue
		}
		refs = append(refs, ItineraryRef{Name: e.Name, URL: e.DownloadURL})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Fetch downloads the raw KML document with the given file name.
func (g *GitHub) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s/%s/%s/%s/%s",
		g.rawURL, g.Owner, g.Repo, g.Branch, g.Folder, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: build request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kmlsource: fetch %s: %v: %w", name, err, apperr.ErrTransport)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("kmlsource: itinerary %s: %w", name, apperr.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("kmlsource: fetch %s: status %d: %w", name, resp.StatusCode, apperr.ErrTransport)
	}
	return readAll(resp.Body)
}

// validName rejects names that try to escape the itinerary folder.
func validName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("kmlsource: invalid itinerary name %q: %w", name, apperr.ErrValidation)
	}
	return nil
}
