package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/finalquest/itinera/internal/models"
)

const (
	findingsFile = "findings.json"
	usersFile    = "users.json"
)

// Store bundles the application's document collections and the photo store,
// all rooted at one data directory.
type Store struct {
	dir      string
	Findings *Collection[models.Finding]
	Users    *Collection[models.User]
	Photos   *Photos
}

// New creates the data directory if needed and opens the collections.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve data dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	return &Store{
		dir:      abs,
		Findings: NewCollection[models.Finding](filepath.Join(abs, findingsFile)),
		Users:    NewCollection[models.User](filepath.Join(abs, usersFile)),
		Photos:   NewPhotos(filepath.Join(abs, "uploads")),
	}, nil
}

// Dir returns the absolute data directory path.
func (s *Store) Dir() string { return s.dir }

// FindingsPath returns the findings document path, for the watcher.
func (s *Store) FindingsPath() string { return s.Findings.Path() }
