package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/finalquest/itinera/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func()

// Watch starts an fsnotify watcher on the data directory and re-syncs the
// index whenever the findings collection file changes on disk, until ctx is
// cancelled. It calls cb (if non-nil) after each successful re-sync.
//
// The collection is written atomically via rename, so a single save can show
// up as any mix of Create, Write and Rename events. Events are debounced and
// each burst triggers one full sync against the collection.
func Watch(ctx context.Context, db *DB, store *storage.Store, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(store.Dir()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", store.Dir()))

	target := filepath.Base(store.FindingsPath())

	// syncTimer debounces event bursts from atomic rename writes.
	var syncTimer *time.Timer
	var syncCh <-chan time.Time

	scheduleSync := func() {
		if syncTimer == nil {
			syncTimer = time.NewTimer(200 * time.Millisecond)
			syncCh = syncTimer.C
		} else {
			syncTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-syncCh:
			if err := Sync(db, store, logger); err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: re-synced")
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleSync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
