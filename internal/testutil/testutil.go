// Package testutil provides shared test helpers for setting up workspaces and databases.
package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/hagal/internal/index"
	"github.com/starford/hagal/internal/workspace"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "hagal-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Workspace is an on-disk workspace built for a test.
type Workspace struct {
	t    *testing.T
	Root string
	WS   *workspace.Workspace
}

// TestWorkspace creates a workspace whose vaults live in directories named
// after them, in the given order.
func TestWorkspace(t *testing.T, vaults ...string) *Workspace {
	t.Helper()
	root := t.TempDir()
	var marker strings.Builder
	marker.WriteString("vaults:\n")
	for _, v := range vaults {
		marker.WriteString("  - fsPath: " + v + "\n")
		if err := os.MkdirAll(filepath.Join(root, v), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, workspace.MarkerFile), []byte(marker.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := workspace.Open(root)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	return &Workspace{t: t, Root: root, WS: ws}
}

// File returns the absolute path of a note.
func (w *Workspace) File(vault, fname string) string {
	return filepath.Join(w.Root, vault, fname+".md")
}

// Write stores raw note content.
func (w *Workspace) Write(vault, fname, content string) {
	w.t.Helper()
	if err := os.WriteFile(w.File(vault, fname), []byte(content), 0o644); err != nil {
		w.t.Fatal(err)
	}
}

// WriteNote stores a note with a minimal header carrying id.
func (w *Workspace) WriteNote(vault, fname, id, body string) {
	w.t.Helper()
	w.Write(vault, fname, Note(id, body))
}

// Read returns a note's raw content.
func (w *Workspace) Read(vault, fname string) string {
	w.t.Helper()
	data, err := os.ReadFile(w.File(vault, fname))
	if err != nil {
		w.t.Fatal(err)
	}
	return string(data)
}

// Exists reports whether the note file is on disk.
func (w *Workspace) Exists(vault, fname string) bool {
	_, err := os.Stat(w.File(vault, fname))
	return !errors.Is(err, fs.ErrNotExist)
}

// Note renders note content with an id and title header.
func Note(id, body string) string {
	return "---\nid: " + id + "\ntitle: " + id + "\n---\n" + body
}
