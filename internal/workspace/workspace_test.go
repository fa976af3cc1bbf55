package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, MarkerFile), "vaults: []\n")
	deep := filepath.Join(root, "a", "b", "c")
	tooDeep := filepath.Join(deep, "d")
	if err := os.MkdirAll(tooDeep, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{root, filepath.Join(root, "a"), deep} {
		got, ok := Find(dir)
		if !ok || got != root {
			t.Errorf("Find(%s) = %q, %v", dir, got, ok)
		}
	}
	if _, ok := Find(tooDeep); ok {
		t.Error("Find should stop after three parent levels")
	}
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, MarkerFile), `
vaults:
  - fsPath: notes
  - fsPath: vaults/work
    name: job
    group: private
ignore:
  - "scratch.*"
`)
	writeFile(t, filepath.Join(root, "notes", "a.md"), "a")
	writeFile(t, filepath.Join(root, "notes", "scratch.x.md"), "x")
	writeFile(t, filepath.Join(root, "vaults", "work", "b.md"), "b")

	w, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	vaults := w.Vaults()
	if len(vaults) != 2 || vaults[0].Name != "notes" || vaults[1].Name != "job" {
		t.Fatalf("vaults = %+v", vaults)
	}
	if vaults[1].Group != "private" {
		t.Errorf("group = %q", vaults[1].Group)
	}

	files, err := w.Store("notes").List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Fname != "a" {
		t.Errorf("notes files = %+v", files)
	}
	if got := w.Path(models.NoteRef{Vault: "job", Fname: "b"}); got != "vaults/work/b.md" {
		t.Errorf("Path = %q", got)
	}
}

func TestOpen_ConfigurationErrors(t *testing.T) {
	cases := map[string]string{
		"no vaults":       "vaults: []\n",
		"duplicate names": "vaults:\n  - fsPath: a\n  - fsPath: x/a\n",
		"escaping path":   "vaults:\n  - fsPath: ../elsewhere\n",
		"missing dir":     "vaults:\n  - fsPath: nowhere\n",
		"bad yaml":        "vaults: [\n",
	}
	for name, marker := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, MarkerFile), marker)
			_ = os.MkdirAll(filepath.Join(root, "a"), 0o755)
			_ = os.MkdirAll(filepath.Join(root, "x", "a"), 0o755)

			_, err := Open(root)
			if !errors.Is(err, apperr.ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestOpen_NoMarker(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if _, err := Discover(t.TempDir()); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("Discover err = %v", err)
	}
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, MarkerFile), "vaults:\n  - fsPath: v1\n  - fsPath: v2\n")
	_ = os.MkdirAll(filepath.Join(root, "v1"), 0o755)
	_ = os.MkdirAll(filepath.Join(root, "v2"), 0o755)
	w, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	ref, ok := w.Locate(filepath.Join(root, "v2", "a.b.md"))
	if !ok || ref != (models.NoteRef{Vault: "v2", Fname: "a.b"}) {
		t.Errorf("Locate abs = %+v, %v", ref, ok)
	}
	ref, ok = w.Locate("v1/x.md")
	if !ok || ref.Vault != "v1" || ref.Fname != "x" {
		t.Errorf("Locate rel = %+v, %v", ref, ok)
	}
	if _, ok := w.Locate("v1/assets/x.md"); ok {
		t.Error("nested file should not map to a note")
	}
	if _, ok := w.Locate("v1/x.txt"); ok {
		t.Error("non-markdown file should not map to a note")
	}
}

func TestParseRef(t *testing.T) {
	for in, want := range map[string]models.NoteRef{
		"v1/a.b":              {Vault: "v1", Fname: "a.b"},
		"v1/a.b.md":           {Vault: "v1", Fname: "a.b"},
		"dendron://v2/x.y.z": {Vault: "v2", Fname: "x.y.z"},
	} {
		got, ok := ParseRef(in)
		if !ok || got != want {
			t.Errorf("ParseRef(%q) = %+v, %v", in, got, ok)
		}
	}
	for _, bad := range []string{"", "nofname", "/x", "v1/"} {
		if _, ok := ParseRef(bad); ok {
			t.Errorf("ParseRef(%q) should fail", bad)
		}
	}
}
