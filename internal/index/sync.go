package index

import (
	"errors"
	"log/slog"
	"time"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/links"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/parser"
	"github.com/starford/hagal/internal/storage"
	"github.com/starford/hagal/internal/workspace"
)

// Sync walks every vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db NoteIndex, ws *workspace.Workspace, logger *slog.Logger) error {
	return syncAll(db, ws, logger, nil)
}

func syncAll(db NoteIndex, ws *workspace.Workspace, logger *slog.Logger, cb EventCallback) error {
	for _, v := range ws.Vaults() {
		if err := syncVault(db, ws, v, logger, cb); err != nil {
			return err
		}
	}
	return nil
}

// syncVault reconciles one vault, reporting each change to cb when set.
func syncVault(db NoteIndex, ws *workspace.Workspace, v models.Vault, logger *slog.Logger, cb EventCallback) error {
	store := ws.Store(v.Name)
	files, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums(v.Name)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Fname] = struct{}{}
		ref := models.NoteRef{Vault: v.Name, Fname: f.Fname}

		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", ws.Path(ref)), slog.String("error", err.Error()))
			continue
		}
		old, known := checksums[f.Fname]
		if old == storage.Checksum(data) {
			continue
		}
		if err := indexFile(db, ws, ref, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", ws.Path(ref)), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", ws.Path(ref)))
		if cb != nil {
			kind := EventUpdated
			if !known {
				kind = EventCreated
			}
			cb(kind, ref)
		}
	}

	// Remove stale entries.
	for fname := range checksums {
		if _, ok := disk[fname]; !ok {
			ref := models.NoteRef{Vault: v.Name, Fname: fname}
			if err := db.DeleteNote(ref); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", ws.Path(ref)), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", ws.Path(ref)))
				if cb != nil {
					cb(EventDeleted, ref)
				}
			}
		}
	}

	return nil
}

// Refresh re-indexes a single note, dropping it when the file is gone.
// It reports whether the note still exists.
func Refresh(db NoteIndex, ws *workspace.Workspace, ref models.NoteRef) (bool, error) {
	store := ws.Store(ref.Vault)
	if store == nil {
		return false, apperr.ErrNotFound
	}
	data, err := store.Read(models.NotePath(ref.Fname))
	if errors.Is(err, apperr.ErrNotFound) {
		return false, db.DeleteNote(ref)
	}
	if err != nil {
		return false, err
	}
	return true, indexFile(db, ws, ref, data)
}

// indexFile parses data and upserts it into the DB.
func indexFile(db NoteIndex, ws *workspace.Workspace, ref models.NoteRef, data []byte) error {
	doc := parser.Parse(data)
	row := NoteRow{
		Vault:     ref.Vault,
		Fname:     ref.Fname,
		Path:      ws.Path(ref),
		Title:     ref.Fname,
		Checksum:  storage.Checksum(data),
		UpdatedAt: time.Now(),
	}
	if doc.Header != nil {
		row.NoteID, _ = doc.Header.ID()
		if v, ok := doc.Header.Get("title"); ok {
			if s, ok := v.AsString(); ok && s != "" {
				row.Title = s
			}
		}
	}
	return db.UpsertNote(row, Targets(ref.Vault, doc.Body))
}

// Targets returns the distinct notes body links to, in first-seen order.
// Unqualified links point into vault.
func Targets(vault, body string) []models.NoteRef {
	var out []models.NoteRef
	seen := map[models.NoteRef]struct{}{}
	for l := range links.All(body) {
		dst := models.NoteRef{Vault: vault, Fname: l.Fname}
		if l.Qualified() {
			dst.Vault = l.Vault
		}
		if _, ok := seen[dst]; ok {
			continue
		}
		seen[dst] = struct{}{}
		out = append(out, dst)
	}
	return out
}
