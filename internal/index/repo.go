package index

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finalquest/itinera/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string
	Title   string
	Snippet string
}

// searchBody concatenates the free-text fields a search should match on.
func searchBody(f models.Finding) string {
	parts := []string{f.Description, f.Location, f.Barcode, f.CreatedBy}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// UpsertFinding inserts or replaces a finding and its FTS entry within a transaction.
func (db *DB) UpsertFinding(f models.Finding) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(f.Tags)
	body := searchBody(f)

	// Upsert findings table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO findings (id, title, description, price, location, barcode, tags, body, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			price       = excluded.price,
			location    = excluded.location,
			barcode     = excluded.barcode,
			tags        = excluded.tags,
			body        = excluded.body,
			created_by  = excluded.created_by,
			created_at  = excluded.created_at
	`, f.ID, f.Title, f.Description, f.Price, f.Location, f.Barcode, string(tagsJSON), body, f.CreatedBy, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert finding: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, f.ID, f.Title, body, f.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFinding removes a finding and its FTS entry.
func (db *DB) DeleteFinding(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM findings WHERE id = ?`, id)

	return tx.Commit()
}

// AllIDs returns every indexed finding id.
func (db *DB) AllIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM findings`)
	if err != nil {
		return nil, fmt.Errorf("index: all ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// ByBarcode returns the ids of findings recorded with the given barcode, newest first.
func (db *DB) ByBarcode(code string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT id FROM findings WHERE barcode = ? ORDER BY created_at DESC`, code)
	if err != nil {
		return nil, fmt.Errorf("index: by barcode: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
