// Package storage persists the application's whole-document JSON collections
// and uploaded photos on the local file system.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Collection is a whole-document JSON array store. Reads return the full
// collection; writes overwrite the full document atomically (tmp file →
// fsync → rename). There is no record-level locking: concurrent writers are
// last-writer-wins, which is an accepted property of this store.
type Collection[T any] struct {
	path string
}

// NewCollection creates a collection backed by the given file path. The file
// does not have to exist yet.
func NewCollection[T any](path string) *Collection[T] {
	return &Collection[T]{path: path}
}

// Load reads the whole document. A missing file is an empty collection.
func (c *Collection[T]) Load() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", c.path, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", c.path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save overwrites the whole document atomically.
func (c *Collection[T]) Save(items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", c.path, err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".itinera-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Path returns the backing file path.
func (c *Collection[T]) Path() string { return c.path }
