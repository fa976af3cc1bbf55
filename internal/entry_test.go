package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/doctor"
	"github.com/starford/hagal/internal/testutil"
)

func runDoctor(t *testing.T, root string, p DoctorParams) (string, error) {
	t.Helper()
	cfg := NewDefaultConfig()
	var stdout, stderr bytes.Buffer
	err := RunDoctor(context.Background(), p,
		WithConfig(cfg),
		WithWorkDir(root),
		WithOutput(&stdout, &stderr))
	return stdout.String(), err
}

func TestRunDoctor_JSONSummary(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1", "v2")
	w.WriteNote("v1", "root", "r1", "[[child]] [[dendron://v2/other]]\n")

	out, err := runDoctor(t, w.Root, DoctorParams{
		Action:    "create-missing-linked-notes",
		AssumeYes: true,
		JSON:      true,
	})
	if err != nil {
		t.Fatalf("RunDoctor: %v", err)
	}
	var summary doctor.RepairSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(summary.Created) != 2 {
		t.Errorf("created = %v", summary.Created)
	}
	if !w.Exists("v1", "child") || !w.Exists("v2", "other") {
		t.Error("stubs missing on disk")
	}
}

func TestRunDoctor_DiscoversFromSubdirectory(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")
	w.Write("v1", "bare", "no header\n")

	out, err := runDoctor(t, w.Root+"/v1", DoctorParams{Action: "fix-metadata", AssumeYes: true})
	if err != nil {
		t.Fatalf("RunDoctor: %v", err)
	}
	if !strings.Contains(out, "v1/bare.md") {
		t.Errorf("summary = %q", out)
	}
	if !strings.HasPrefix(w.Read("v1", "bare"), "---\nid: ") {
		t.Errorf("header not written: %q", w.Read("v1", "bare"))
	}
}

func TestRunDoctor_Extensions(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")

	out, err := runDoctor(t, w.Root, DoctorParams{
		Action:    "find-incompatible-extensions",
		Installed: []string{"foam.foam-vscode"},
		JSON:      true,
	})
	if err != nil {
		t.Fatalf("RunDoctor: %v", err)
	}
	var report doctor.ExtensionReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.InstallStatus) != len(doctor.IncompatibleExtensions) {
		t.Errorf("entries = %d", len(report.InstallStatus))
	}
}

func TestRunDoctor_Errors(t *testing.T) {
	w := testutil.TestWorkspace(t, "v1")

	if _, err := runDoctor(t, w.Root, DoctorParams{Action: "nope"}); err == nil {
		t.Error("unknown action accepted")
	}
	if _, err := runDoctor(t, w.Root, DoctorParams{Action: "fix-metadata", Scope: "file"}); !errors.Is(err, apperr.ErrNoActiveNote) {
		t.Errorf("file scope without note: %v", err)
	}
	if _, err := runDoctor(t, t.TempDir(), DoctorParams{Action: "fix-metadata"}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("no workspace: %v", err)
	}
}

func TestRunDoctor_RequiresConfig(t *testing.T) {
	if err := RunDoctor(context.Background(), DoctorParams{Action: "fix-metadata"}); err == nil {
		t.Fatal("expected error without config")
	}
}
