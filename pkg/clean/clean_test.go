package clean

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testWorkspace(t *testing.T) (buildRoot, logDir string) {
	t.Helper()
	dir := t.TempDir()
	buildRoot = filepath.Join(dir, "build")
	logDir = filepath.Join(dir, "logs")
	for _, d := range []string{
		filepath.Join(buildRoot, "bf-drivers"),
		logDir,
	} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(logDir, "bf-drivers.log"), []byte("out\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return buildRoot, logDir
}

func TestScope_IsEmpty(t *testing.T) {
	if !(Scope{}).IsEmpty() {
		t.Error("Empty scope must report IsEmpty")
	}
	if (Scope{Logs: true}).IsEmpty() {
		t.Error("Scope with logs selected must not report IsEmpty")
	}
}

func TestManager_Targets_FollowScope(t *testing.T) {
	m := NewManager("/sde/build", "/sde/logs", zerolog.Nop())

	cases := []struct {
		scope Scope
		want  []string
	}{
		{Scope{BuildDir: true, Logs: true}, []string{"/sde/build", "/sde/logs"}},
		{Scope{BuildDir: true}, []string{"/sde/build"}},
		{Scope{Logs: true}, []string{"/sde/logs"}},
		{Scope{}, nil},
	}
	for _, tc := range cases {
		got := m.Targets(tc.scope)
		if len(got) != len(tc.want) {
			t.Errorf("Scope %+v: expected %v, got %v", tc.scope, tc.want, got)
			continue
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Errorf("Scope %+v: expected %v, got %v", tc.scope, tc.want, got)
			}
		}
	}
}

func TestManager_Clean_RemovesSelectedDirectories(t *testing.T) {
	buildRoot, logDir := testWorkspace(t)
	m := NewManager(buildRoot, logDir, zerolog.Nop())

	if err := m.Clean(Scope{BuildDir: true, Logs: true}); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	for _, d := range []string{buildRoot, logDir} {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Errorf("Expected %s removed, stat err: %v", d, err)
		}
	}
}

func TestManager_Clean_SkipLogsKeepsLogs(t *testing.T) {
	buildRoot, logDir := testWorkspace(t)
	m := NewManager(buildRoot, logDir, zerolog.Nop())

	if err := m.Clean(Scope{BuildDir: true}); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if _, err := os.Stat(buildRoot); !os.IsNotExist(err) {
		t.Errorf("Expected build root removed, stat err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(logDir, "bf-drivers.log")); err != nil {
		t.Errorf("Expected log file kept: %v", err)
	}
}

func TestManager_Clean_MissingDirectoriesAreNoOp(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "build"), filepath.Join(dir, "logs"), zerolog.Nop())

	if err := m.Clean(Scope{BuildDir: true, Logs: true}); err != nil {
		t.Errorf("Cleaning a clean workspace must succeed, got %v", err)
	}
}

func TestManager_Confirm(t *testing.T) {
	m := NewManager("/sde/build", "/sde/logs", zerolog.Nop())
	scope := Scope{BuildDir: true, Logs: true}

	cases := map[string]bool{
		"y\n": true, "yes\n": true, "Y\n": true,
		"n\n": false, "no\n": false, "\n": false, "": false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		ok, err := m.Confirm(scope, strings.NewReader(input), &out)
		if err != nil {
			t.Fatalf("Confirm(%q) failed: %v", input, err)
		}
		if ok != want {
			t.Errorf("Confirm(%q): expected %v, got %v", input, want, ok)
		}
		if !strings.Contains(out.String(), "/sde/build") {
			t.Errorf("Confirm prompt must list targets, got %q", out.String())
		}
	}

	// An empty scope never asks.
	var out bytes.Buffer
	ok, err := m.Confirm(Scope{}, strings.NewReader("y\n"), &out)
	if err != nil || ok {
		t.Errorf("Empty scope must decline without asking, got %v %v", ok, err)
	}
}
