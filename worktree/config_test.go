package worktree

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sferrors "github.com/randalmurphal/shipflow/errors"
)

func TestWriteRunConfigs(t *testing.T) {
	dir := t.TempDir()
	s := &Sandbox{
		RunID:  "run-1",
		Path:   filepath.Join(dir, "run-1"),
		Branch: "shipflow/run-1",
		Ports:  []int{39000, 39001, 39002, 39003},
	}

	if err := writeRunConfigs(s); err != nil {
		t.Fatalf("writeRunConfigs: %v", err)
	}

	for _, name := range RunScopedFiles() {
		data, err := os.ReadFile(filepath.Join(s.Path, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if !strings.Contains(string(data), "run-1") {
			t.Errorf("%s should reference the run ID", name)
		}
	}

	ports, err := os.ReadFile(filepath.Join(s.Path, PortMapFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(ports), "39000") {
		t.Errorf("port map should list the allocated ports: %s", ports)
	}
}

func TestWriteInsideWorktree_RejectsEscape(t *testing.T) {
	dir := t.TempDir()
	worktree := filepath.Join(dir, "wt")
	if err := os.MkdirAll(worktree, 0o755); err != nil {
		t.Fatal(err)
	}

	outside := filepath.Join(dir, ToolConnectorFile)
	err := writeInsideWorktree(worktree, outside, []byte("nope"))
	if !errors.Is(err, sferrors.ErrIsolationViolation) {
		t.Fatalf("error = %v, want ErrIsolationViolation", err)
	}
	if _, statErr := os.Stat(outside); !os.IsNotExist(statErr) {
		t.Error("the outside file must not be created")
	}

	// Relative traversal out of the worktree is also rejected.
	sneaky := filepath.Join(worktree, "..", PortMapFile)
	if err := writeInsideWorktree(worktree, sneaky, []byte("nope")); !errors.Is(err, sferrors.ErrIsolationViolation) {
		t.Errorf("traversal error = %v, want ErrIsolationViolation", err)
	}
}

func TestCleanupStaleConfig(t *testing.T) {
	repo := t.TempDir()

	// Leak two stale files into the parent.
	for _, name := range []string{ToolConnectorFile, PortMapFile} {
		if err := os.WriteFile(filepath.Join(repo, name), []byte("stale"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := CleanupStaleConfig(repo); err != nil {
		t.Fatalf("CleanupStaleConfig: %v", err)
	}

	for _, name := range RunScopedFiles() {
		if _, err := os.Stat(filepath.Join(repo, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been swept from the parent", name)
		}
	}

	exclude, err := os.ReadFile(filepath.Join(repo, ".git", "info", "exclude"))
	if err != nil {
		t.Fatalf("exclude file: %v", err)
	}
	for _, name := range RunScopedFiles() {
		if !strings.Contains(string(exclude), name) {
			t.Errorf("exclude file should list %s", name)
		}
	}

	// Second sweep is a no-op and must not duplicate patterns.
	if err := CleanupStaleConfig(repo); err != nil {
		t.Fatalf("second CleanupStaleConfig: %v", err)
	}
	again, _ := os.ReadFile(filepath.Join(repo, ".git", "info", "exclude"))
	if strings.Count(string(again), ToolConnectorFile) != 1 {
		t.Errorf("exclude patterns duplicated:\n%s", again)
	}
}
