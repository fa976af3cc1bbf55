// Package workspace discovers a workspace root and opens its vaults.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/storage"
	"github.com/starford/hagal/pkg/config"
)

// maxParentLevels bounds how far Find climbs above the start directory.
const maxParentLevels = 3

// Find looks for MarkerFile in startDir and up to three of its parents.
func Find(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for range maxParentLevels + 1 {
		info, err := os.Stat(filepath.Join(dir, MarkerFile))
		if err == nil && !info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

// Workspace is an explicit handle on a root directory and its ordered vaults.
type Workspace struct {
	root   string
	vaults []models.Vault
	stores map[string]storage.Provider
}

// Open loads the marker under root and opens a store per vault. Every
// failure is an apperr.ErrConfiguration.
func Open(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root: %w: %w", apperr.ErrConfiguration, err)
	}
	var m Marker
	if err := config.Load(filepath.Join(abs, MarkerFile), &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace: no %s in %s: %w", MarkerFile, abs, apperr.ErrConfiguration)
		}
		return nil, fmt.Errorf("workspace: %w: %w", apperr.ErrConfiguration, err)
	}

	w := New(abs)
	for _, e := range m.Vaults {
		ignore := append(append([]string(nil), m.Ignore...), e.Ignore...)
		store, err := storage.NewFS(filepath.Join(abs, filepath.FromSlash(e.FSPath)), ignore...)
		if err != nil {
			return nil, fmt.Errorf("workspace: vault %s: %w: %w", e.Name, apperr.ErrConfiguration, err)
		}
		w.Add(models.Vault{Name: e.Name, FSPath: e.FSPath, Group: e.Group}, store)
	}
	return w, nil
}

// Discover finds the workspace root above startDir and opens it.
func Discover(startDir string) (*Workspace, error) {
	root, ok := Find(startDir)
	if !ok {
		return nil, fmt.Errorf("workspace: no %s above %s: %w", MarkerFile, startDir, apperr.ErrConfiguration)
	}
	return Open(root)
}

// New returns an empty workspace rooted at root. Vaults are attached with Add.
func New(root string) *Workspace {
	return &Workspace{root: root, stores: map[string]storage.Provider{}}
}

// Add appends a vault backed by store, replacing the store if the vault is
// already present.
func (w *Workspace) Add(v models.Vault, store storage.Provider) {
	if _, ok := w.stores[v.Name]; !ok {
		w.vaults = append(w.vaults, v)
	}
	w.stores[v.Name] = store
}

func (w *Workspace) Root() string { return w.root }

// Vaults returns the vaults in declaration order.
func (w *Workspace) Vaults() []models.Vault {
	return append([]models.Vault(nil), w.vaults...)
}

// Vault looks up a vault by name.
func (w *Workspace) Vault(name string) (models.Vault, bool) {
	for _, v := range w.vaults {
		if v.Name == name {
			return v, true
		}
	}
	return models.Vault{}, false
}

// Store returns the provider for a vault, nil if the vault is unknown.
func (w *Workspace) Store(vault string) storage.Provider {
	return w.stores[vault]
}

// Path returns the workspace-relative path of a note.
func (w *Workspace) Path(ref models.NoteRef) string {
	v, ok := w.Vault(ref.Vault)
	if !ok {
		return path.Join(ref.Vault, models.NotePath(ref.Fname))
	}
	return models.WorkspacePath(&v, ref.Fname)
}

// Locate maps a file path (absolute, or relative to the root) onto the note
// it holds.
func (w *Workspace) Locate(file string) (models.NoteRef, bool) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(w.root, file)
	}
	if !strings.HasSuffix(file, ".md") {
		return models.NoteRef{}, false
	}
	for _, v := range w.vaults {
		store := w.stores[v.Name]
		rel, err := filepath.Rel(store.Root(), file)
		if err != nil || strings.ContainsRune(rel, filepath.Separator) || strings.HasPrefix(rel, "..") {
			continue
		}
		return models.NoteRef{Vault: v.Name, Fname: strings.TrimSuffix(rel, ".md")}, true
	}
	return models.NoteRef{}, false
}

// ParseRef reads a note address written as "vault/fname" or in the
// qualified link form.
func ParseRef(s string) (models.NoteRef, bool) {
	s = strings.TrimPrefix(s, models.LinkScheme)
	vault, fname, ok := strings.Cut(s, "/")
	if !ok || vault == "" || fname == "" {
		return models.NoteRef{}, false
	}
	return models.NoteRef{Vault: vault, Fname: strings.TrimSuffix(fname, ".md")}, true
}
