package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/workspace"
)

// Index change kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, ref models.NoteRef)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on every vault directory and processes
// note changes until ctx is cancelled. It calls cb (if non-nil) after each
// successful index mutation.
//
// Rename events trigger a reconciliation pass that removes stale index
// entries whose files no longer exist on disk.
func Watch(ctx context.Context, db NoteIndex, ws *workspace.Workspace, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, v := range ws.Vaults() {
		root := ws.Store(v.Name).Root()
		if err := w.Add(root); err != nil {
			return err
		}
		logger.Info("watcher: started", slog.String("vault", v.Name), slog.String("root", root))
	}

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := syncAll(db, ws, logger, cb); err != nil {
				logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			ref, ok := ws.Locate(ev.Name)
			if !ok {
				continue
			}
			path := ws.Path(ref)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				exists, err := Refresh(db, ws, ref)
				if err != nil {
					logger.Warn("watcher: index failed", slog.String("path", path), slog.String("error", err.Error()))
					continue
				}
				if !exists {
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("path", path), slog.String("op", kind))
				if cb != nil {
					cb(kind, ref)
				}

			case ev.Op&fsnotify.Remove != 0:
				if err := db.DeleteNote(ref); err != nil {
					logger.Warn("watcher: delete failed", slog.String("path", path), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", path))
				if cb != nil {
					cb(EventDeleted, ref)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path arrives as a separate Create event; a short
				// reconciliation pass catches anything missed.
				if err := db.DeleteNote(ref); err != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", path), slog.String("error", err.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", path))
					if cb != nil {
						cb(EventDeleted, ref)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
