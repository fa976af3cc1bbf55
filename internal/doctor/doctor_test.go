package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/ids"
	"github.com/starford/hagal/internal/metadata"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/parser"
	"github.com/starford/hagal/internal/storage"
	"github.com/starford/hagal/internal/testutil"
	"github.com/starford/hagal/internal/workspace"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newDoctor(ws *workspace.Workspace, opts ...Option) *Doctor {
	base := []Option{
		WithConfirmer(AutoConfirm),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(ws, append(base, opts...)...)
}

func run(t *testing.T, d *Doctor, a Action, s Scope) Result {
	t.Helper()
	res, err := d.Run(context.Background(), a, s)
	if err != nil {
		t.Fatalf("Run(%s, %s): %v", a.Name(), s, err)
	}
	return res
}

func noteID(t *testing.T, w *testutil.Workspace, vault, fname string) string {
	t.Helper()
	doc := parser.Parse([]byte(w.Read(vault, fname)))
	if doc.Header == nil {
		t.Fatalf("%s/%s has no header", vault, fname)
	}
	id, _ := doc.Header.ID()
	return id
}

// assertUniqueIDs maps every identifier in the workspace to its note and
// fails on duplicates.
func assertUniqueIDs(t *testing.T, w *testutil.Workspace) map[string]string {
	t.Helper()
	seen := map[string]string{}
	for _, v := range w.WS.Vaults() {
		files, err := w.WS.Store(v.Name).List()
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range files {
			id := noteID(t, w, v.Name, f.Fname)
			where := v.Name + "/" + f.Fname
			if id == "" {
				t.Errorf("%s has no id", where)
			}
			if prev, dup := seen[id]; dup {
				t.Errorf("id %q shared by %s and %s", id, prev, where)
			}
			seen[id] = where
		}
	}
	return seen
}

func TestCreateMissingLinked_CrossVaultExample(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1", "v2")
	w.WriteNote("v1", "first", "first", "see [[dendron://v2/second]] and [[broken]]\n")
	d := newDoctor(w.WS)

	res := run(t, d, CreateMissingLinked{}, ScopeWorkspace)
	want := []string{"v2/second.md", "v1/broken.md"}
	if !slices.Equal(res.Repair.Created, want) {
		t.Fatalf("created = %v, want %v", res.Repair.Created, want)
	}
	if w.Exists("v1", "second") {
		t.Error("qualified link created its stub in the containing vault")
	}

	res = run(t, d, CreateMissingLinked{}, ScopeWorkspace)
	if len(res.Repair.Created) != 0 {
		t.Errorf("second run created %v", res.Repair.Created)
	}
	assertUniqueIDs(t, w)
}

func TestCreateMissingLinked_StubContents(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "root", "root", "[[projects.new-idea]]")
	run(t, newDoctor(w.WS), CreateMissingLinked{}, ScopeWorkspace)

	doc := parser.Parse([]byte(w.Read("v1", "projects.new-idea")))
	if doc.Header == nil {
		t.Fatal("stub has no header")
	}
	if doc.Body != "" {
		t.Errorf("stub body = %q, want empty", doc.Body)
	}
	if id, _ := doc.Header.ID(); !metadata.WellFormedID(id) {
		t.Errorf("stub id %q is not well formed", id)
	}
	title, _ := doc.Header.Get("title")
	if s, _ := title.AsString(); s != "New-idea" {
		t.Errorf("title = %q", s)
	}
	created, _ := doc.Header.Get("created")
	if n, _ := created.AsNumber(); int64(n) != fixedNow.UnixMilli() {
		t.Errorf("created = %v", n)
	}
}

func TestCreateMissingLinked_VaultIsolation(t *testing.T) {
	w := testutil.TestWorkspace(t, "a", "b")
	w.WriteNote("a", "note", "n1", "[[x]]")
	w.WriteNote("b", "x", "x1", "in b")

	res := run(t, newDoctor(w.WS), CreateMissingLinked{}, ScopeWorkspace)
	if !slices.Equal(res.Repair.Created, []string{"a/x.md"}) {
		t.Fatalf("created = %v", res.Repair.Created)
	}
	if got := w.Read("b", "x"); got != testutil.Note("x1", "in b") {
		t.Errorf("note in other vault changed: %q", got)
	}
}

func TestCreateMissingLinked_Dedup(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1", "v2")
	w.WriteNote("v1", "a", "a", "[[missing]] [[again|missing]]")
	w.WriteNote("v1", "b", "b", "[[alias|missing]]")
	w.WriteNote("v2", "c", "c", "[[dendron://v1/missing]]")

	res := run(t, newDoctor(w.WS), CreateMissingLinked{}, ScopeWorkspace)
	if !slices.Equal(res.Repair.Created, []string{"v1/missing.md"}) {
		t.Fatalf("created = %v", res.Repair.Created)
	}
}

func TestCreateMissingLinked_FileScope(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "[[from-a]]")
	w.WriteNote("v1", "b", "b", "[[from-b]]")
	d := newDoctor(w.WS, WithActiveNote(FixedNote{Vault: "v1", Fname: "b"}))

	res := run(t, d, CreateMissingLinked{}, ScopeFile)
	if !slices.Equal(res.Repair.Created, []string{"v1/from-b.md"}) {
		t.Fatalf("created = %v", res.Repair.Created)
	}
	if w.Exists("v1", "from-a") {
		t.Error("file scope repaired a note outside scope")
	}
}

func TestCreateMissingLinked_UnknownVaultIgnored(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "[[dendron://ghost/x]] `[[in.code]]`")

	res := run(t, newDoctor(w.WS), CreateMissingLinked{}, ScopeWorkspace)
	if res.Applied || !res.Plan.Empty() {
		t.Fatalf("plan = %+v", res.Plan)
	}
	if _, err := os.Stat(filepath.Join(w.Root, "ghost")); err == nil {
		t.Error("unknown vault directory was created")
	}
}

func TestCreateMissingLinked_StubAppearsBeforeApply(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "[[late]]")
	confirm := ConfirmFunc(func(context.Context, Preview) (bool, error) {
		w.WriteNote("v1", "late", "late", "written meanwhile")
		return true, nil
	})

	res := run(t, newDoctor(w.WS, WithConfirmer(confirm)), CreateMissingLinked{}, ScopeWorkspace)
	if len(res.Repair.Created) != 0 || !slices.Equal(res.Repair.Skipped, []string{"v1/late.md"}) {
		t.Fatalf("summary = %+v", res.Repair)
	}
	if got := w.Read("v1", "late"); !strings.Contains(got, "written meanwhile") {
		t.Errorf("existing note overwritten: %q", got)
	}
}

func TestFixMetadata_NoHeaderFileScope(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.Write("v1", "plain", "just text\n")
	w.WriteNote("v1", "other", "other", "")
	d := newDoctor(w.WS, WithActiveNote(FixedNote{Vault: "v1", Fname: "plain"}))

	res := run(t, d, FixMetadata{}, ScopeFile)
	if !slices.Equal(res.Repair.Rewritten, []string{"v1/plain.md"}) {
		t.Fatalf("rewritten = %v", res.Repair.Rewritten)
	}
	id := noteID(t, w, "v1", "plain")
	if id == "" || id == "other" {
		t.Fatalf("id = %q", id)
	}
	doc := parser.Parse([]byte(w.Read("v1", "plain")))
	if doc.Body != "just text\n" {
		t.Errorf("body = %q", doc.Body)
	}
	assertUniqueIDs(t, w)

	res = run(t, d, FixMetadata{}, ScopeFile)
	if !res.Plan.Empty() {
		t.Errorf("second run planned %+v", res.Plan.Items)
	}
}

func TestFixMetadata_Workspace(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1", "v2")
	w.WriteNote("v1", "a", "dup", "a")
	w.WriteNote("v2", "b", "dup", "b")
	w.Write("v1", "c", "---\ntitle: Keep Me\ncustom: [1, 2]\n---\nc body\n")
	w.Write("v1", "d", "---\nid: -bad-id\n---\n")
	w.WriteNote("v1", "e", "fine", "e")
	before := w.Read("v1", "e")

	res := run(t, newDoctor(w.WS), FixMetadata{}, ScopeWorkspace)
	slices.Sort(res.Repair.Rewritten)
	want := []string{"v1/c.md", "v1/d.md", "v2/b.md"}
	if !slices.Equal(res.Repair.Rewritten, want) {
		t.Fatalf("rewritten = %v, want %v", res.Repair.Rewritten, want)
	}

	if id := noteID(t, w, "v1", "a"); id != "dup" {
		t.Errorf("first holder lost its id: %q", id)
	}
	if got := w.Read("v1", "e"); got != before {
		t.Errorf("valid note changed: %q", got)
	}
	c := parser.Parse([]byte(w.Read("v1", "c")))
	title, _ := c.Header.Get("title")
	if s, _ := title.AsString(); s != "Keep Me" {
		t.Errorf("existing title replaced: %q", s)
	}
	if !c.Header.Has("custom") || !c.Header.Has("desc") || !c.Header.Has("updated") {
		t.Errorf("header keys = %v", c.Header.Keys())
	}
	assertUniqueIDs(t, w)

	res = run(t, newDoctor(w.WS), FixMetadata{}, ScopeWorkspace)
	if !res.Plan.Empty() {
		t.Errorf("second run planned %+v", res.Plan.Items)
	}
}

func TestFixMetadata_NullAndRepeatedIDs(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.Write("v1", "a", "---\nid: null\ntitle: A\n---\na\n")
	w.Write("v1", "b", "---\nid: null\n---\nb\n")
	w.Write("v1", "c", "---\nid: first\ntitle: C\nid: second\n---\nc\n")

	res := run(t, newDoctor(w.WS), FixMetadata{}, ScopeWorkspace)
	slices.Sort(res.Repair.Rewritten)
	want := []string{"v1/a.md", "v1/b.md", "v1/c.md"}
	if !slices.Equal(res.Repair.Rewritten, want) {
		t.Fatalf("rewritten = %v, want %v", res.Repair.Rewritten, want)
	}
	ids := assertUniqueIDs(t, w)
	if _, ok := ids["null"]; ok {
		t.Error("null id kept")
	}

	c := parser.Parse([]byte(w.Read("v1", "c")))
	if n := c.Header.Occurrences(parser.IDKey); n != 1 {
		t.Errorf("id keys after reassign = %d, want 1:\n%s", n, w.Read("v1", "c"))
	}
	for _, id := range []string{"first", "second"} {
		if ids[id] != "" {
			t.Errorf("stale id %q kept", id)
		}
	}

	res = run(t, newDoctor(w.WS), FixMetadata{}, ScopeWorkspace)
	if !res.Plan.Empty() {
		t.Errorf("second run planned %+v", res.Plan.Items)
	}
}

func TestFixMetadata_DuplicateFileScope(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "dup", "")
	w.WriteNote("v1", "b", "dup", "")
	d := newDoctor(w.WS, WithActiveNote(FixedNote{Vault: "v1", Fname: "a"}))

	run(t, d, FixMetadata{}, ScopeFile)
	if noteID(t, w, "v1", "b") != "dup" {
		t.Error("note outside scope changed")
	}
	if noteID(t, w, "v1", "a") == "dup" {
		t.Error("designated note kept the colliding id")
	}
}

func TestRegenerateIDs_FileScope(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1", "v2")
	w.WriteNote("v1", "root", "r1", "")
	w.WriteNote("v1", "a", "a1", "")
	w.WriteNote("v2", "root", "r2", "")
	d := newDoctor(w.WS, WithActiveNote(FixedNote{Vault: "v1", Fname: "a"}))

	res := run(t, d, RegenerateIDs{}, ScopeFile)
	if !slices.Equal(res.Repair.Rewritten, []string{"v1/a.md"}) {
		t.Fatalf("rewritten = %v", res.Repair.Rewritten)
	}
	if noteID(t, w, "v1", "a") == "a1" {
		t.Error("designated note kept its id")
	}
	if noteID(t, w, "v1", "root") != "r1" || noteID(t, w, "v2", "root") != "r2" {
		t.Error("notes outside scope changed")
	}
}

func TestRegenerateIDs_Workspace(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1", "v2")
	w.WriteNote("v1", "root", "r1", "")
	w.WriteNote("v1", "foo", "f1", "")
	w.Write("v2", "root", "no header\n")
	w.Write("v2", "bar", "---\nid: \"0042\"\nkeep: yes\n---\nbody\n")

	res := run(t, newDoctor(w.WS), RegenerateIDs{}, ScopeWorkspace)
	if len(res.Repair.Rewritten) != 4 {
		t.Fatalf("rewritten = %v", res.Repair.Rewritten)
	}
	ids := assertUniqueIDs(t, w)
	for _, old := range []string{"r1", "f1", "0042"} {
		if _, ok := ids[old]; ok {
			t.Errorf("old id %q survived", old)
		}
	}
	bar := parser.Parse([]byte(w.Read("v2", "bar")))
	if !bar.Header.Has("keep") || bar.Body != "body\n" {
		t.Errorf("bar lost content: %q", w.Read("v2", "bar"))
	}
}

func TestRegenerateIDs_RetriesCollisions(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "taken", "")
	w.WriteNote("v1", "b", "other", "")
	src := ids.Sequence("taken", "other", "fresh1", "fresh1", "fresh2")
	d := newDoctor(w.WS, WithIDSource(src))

	run(t, d, RegenerateIDs{}, ScopeWorkspace)
	if got := noteID(t, w, "v1", "a"); got != "fresh1" {
		t.Errorf("a = %q", got)
	}
	if got := noteID(t, w, "v1", "b"); got != "fresh2" {
		t.Errorf("b = %q", got)
	}
}

func TestRun_DeclinedHasNoEffects(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "[[missing]]")
	w.Write("v1", "b", "no header")
	decline := ConfirmFunc(func(context.Context, Preview) (bool, error) { return false, nil })
	d := newDoctor(w.WS, WithConfirmer(decline))

	for _, a := range []Action{CreateMissingLinked{}, FixMetadata{}, RegenerateIDs{}} {
		res := run(t, d, a, ScopeWorkspace)
		if res.Applied {
			t.Errorf("%s applied after decline", a.Name())
		}
		if len(res.Repair.Created)+len(res.Repair.Rewritten)+len(res.Repair.Skipped)+len(res.Repair.Failed) != 0 {
			t.Errorf("%s summary = %+v", a.Name(), res.Repair)
		}
	}
	if w.Exists("v1", "missing") || w.Read("v1", "b") != "no header" || noteID(t, w, "v1", "a") != "a" {
		t.Error("declined run changed files")
	}
}

func TestRun_PreviewShowsPlan(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "[[one]] [[two]]")
	var seen Preview
	confirm := ConfirmFunc(func(_ context.Context, p Preview) (bool, error) {
		seen = p
		return false, nil
	})
	run(t, newDoctor(w.WS, WithConfirmer(confirm)), CreateMissingLinked{}, ScopeWorkspace)

	if seen.Action != "create-missing-linked-notes" || seen.Plan.Count(CreateStub) != 2 {
		t.Fatalf("preview = %+v", seen)
	}
	if !slices.Equal(seen.Paths, []string{"v1/one.md", "v1/two.md"}) {
		t.Errorf("paths = %v", seen.Paths)
	}
}

type failingStore struct {
	storage.Provider
	fail string
}

func (f failingStore) Write(path string, content []byte) error {
	if path == f.fail {
		return errors.New("permission denied")
	}
	return f.Provider.Write(path, content)
}

func (f failingStore) Create(path string, content []byte) error {
	if path == f.fail {
		return errors.New("permission denied")
	}
	return f.Provider.Create(path, content)
}

func TestRun_WriteFailureIsRecorded(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "")
	w.WriteNote("v1", "b", "b", "")
	w.WriteNote("v1", "c", "c", "")
	v, _ := w.WS.Vault("v1")
	w.WS.Add(v, failingStore{Provider: w.WS.Store("v1"), fail: "b.md"})

	res := run(t, newDoctor(w.WS), RegenerateIDs{}, ScopeWorkspace)
	if !slices.Equal(res.Repair.Rewritten, []string{"v1/a.md", "v1/c.md"}) {
		t.Errorf("rewritten = %v", res.Repair.Rewritten)
	}
	if len(res.Repair.Failed) != 1 || res.Repair.Failed[0].Path != "v1/b.md" ||
		!strings.Contains(res.Repair.Failed[0].Reason, "permission denied") {
		t.Errorf("failed = %+v", res.Repair.Failed)
	}
	if noteID(t, w, "v1", "b") != "b" {
		t.Error("failed note changed")
	}
}

type brokenList struct{ storage.Provider }

func (brokenList) List() ([]models.NoteFile, error) { return nil, errors.New("io error") }

func TestRun_ConfigurationErrors(t *testing.T) {
	d := newDoctor(workspace.New(t.TempDir()))
	if _, err := d.Run(context.Background(), FixMetadata{}, ScopeWorkspace); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("no vaults: err = %v", err)
	}

	w := testutil.TestWorkspace(t, "v1")
	v, _ := w.WS.Vault("v1")
	w.WS.Add(v, brokenList{w.WS.Store("v1")})
	if _, err := newDoctor(w.WS).Run(context.Background(), FixMetadata{}, ScopeWorkspace); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("unlistable vault: err = %v", err)
	}
}

func TestRun_FileScopeNeedsActiveNote(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "")

	_, err := newDoctor(w.WS).Run(context.Background(), RegenerateIDs{}, ScopeFile)
	if !errors.Is(err, apperr.ErrNoActiveNote) {
		t.Errorf("err = %v, want ErrNoActiveNote", err)
	}
	d := newDoctor(w.WS, WithActiveNote(FixedNote{Vault: "v1", Fname: "nope"}))
	if _, err := d.Run(context.Background(), RegenerateIDs{}, ScopeFile); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindIncompatibleExtensions(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	d := newDoctor(w.WS, WithConfirmer(ConfirmFunc(func(context.Context, Preview) (bool, error) {
		t.Fatal("extension check asked for confirmation")
		return false, nil
	})))

	res := run(t, d, FindIncompatibleExtensions{}, ScopeWorkspace)
	if len(res.Extensions.InstallStatus) != 10 {
		t.Fatalf("entries = %d", len(res.Extensions.InstallStatus))
	}
	for _, s := range res.Extensions.InstallStatus {
		if s.Installed {
			t.Errorf("%s reported installed", s.ID)
		}
	}
	if !strings.Contains(res.Extensions.Markdown(), "Not Installed") {
		t.Error("preview lacks Not Installed marker")
	}

	d = newDoctor(w.WS, WithInventory(StaticInventory(IncompatibleExtensions)))
	res = run(t, d, FindIncompatibleExtensions{}, ScopeWorkspace)
	for _, s := range res.Extensions.InstallStatus {
		if !s.Installed {
			t.Errorf("%s reported missing", s.ID)
		}
	}
	md := res.Extensions.Markdown()
	if !strings.Contains(md, "[View Extension]") || strings.Contains(md, "Not Installed") {
		t.Errorf("preview = %q", md)
	}

	res = run(t, d, FindIncompatibleExtensions{Installed: []string{"Foam.foam-vscode"}}, ScopeWorkspace)
	var n int
	for _, s := range res.Extensions.InstallStatus {
		if s.Installed {
			n++
		}
	}
	if n != 1 {
		t.Errorf("supplied list: %d installed, want 1", n)
	}
}

func TestResult_JSONShapes(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "[[b]]")

	res := run(t, newDoctor(w.WS), CreateMissingLinked{}, ScopeWorkspace)
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var repair map[string]json.RawMessage
	_ = json.Unmarshal(data, &repair)
	for _, k := range []string{"created", "rewritten", "skipped", "failed"} {
		if _, ok := repair[k]; !ok {
			t.Errorf("missing key %q in %s", k, data)
		}
	}
	if string(repair["failed"]) != "[]" {
		t.Errorf("failed = %s", repair["failed"])
	}

	res = run(t, newDoctor(w.WS), FindIncompatibleExtensions{}, ScopeWorkspace)
	data, _ = json.Marshal(res)
	if !strings.HasPrefix(string(data), `{"installStatus":[{"id":`) {
		t.Errorf("extension json = %s", data)
	}
}

func TestParseActionAndScope(t *testing.T) {
	for _, name := range ActionNames {
		a, err := ParseAction(name)
		if err != nil || a.Name() != name {
			t.Errorf("ParseAction(%q) = %v, %v", name, a, err)
		}
	}
	if _, err := ParseAction("reload"); err == nil {
		t.Error("unknown action accepted")
	}
	if s, _ := ParseScope("file"); s != ScopeFile {
		t.Error("file scope")
	}
	if _, err := ParseScope("vault"); err == nil {
		t.Error("unknown scope accepted")
	}
}

func TestPreview_JSONItemKinds(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.WriteNote("v1", "a", "a", "[[b]]")

	p, err := newDoctor(w.WS).Preview(context.Background(), CreateMissingLinked{}, ScopeWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"kind":"createStub"`) {
		t.Errorf("preview json = %s", data)
	}
	var back Preview
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back.Plan.Items) != 1 || back.Plan.Items[0].Kind != CreateStub {
		t.Errorf("decoded = %+v", back.Plan)
	}

	var k ItemKind
	if err := k.UnmarshalText([]byte("explode")); err == nil {
		t.Error("unknown kind accepted")
	}
}
