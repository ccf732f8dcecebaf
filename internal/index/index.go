package index

import "github.com/finalquest/itinera/internal/models"

// FindingIndex defines the interface for finding indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type FindingIndex interface {
	UpsertFinding(f models.Finding) error
	DeleteFinding(id string) error
	AllIDs() (map[string]struct{}, error)
	ByBarcode(code string) ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies FindingIndex at compile time.
var _ FindingIndex = (*DB)(nil)
