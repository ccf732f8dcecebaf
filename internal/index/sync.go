package index

import (
	"log/slog"

	"github.com/finalquest/itinera/internal/storage"
)

// Sync reads the findings collection and brings the index up to date:
//   - every finding in the collection is upserted
//   - index rows whose finding no longer exists are deleted
func Sync(db *DB, store *storage.Store, logger *slog.Logger) error {
	findings, err := store.Findings.Load()
	if err != nil {
		return err
	}

	indexed, err := db.AllIDs()
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		current[f.ID] = struct{}{}

		if err := db.UpsertFinding(f); err != nil {
			logger.Warn("sync: index failed", slog.String("id", f.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", f.ID))
		}
	}

	// Remove stale entries.
	for id := range indexed {
		if _, ok := current[id]; !ok {
			if err := db.DeleteFinding(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}
