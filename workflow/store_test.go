package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/randalmurphal/shipflow/issue"
)

func sampleRun(t *testing.T) *Run {
	t.Helper()
	run, err := NewRun(&issue.Issue{
		ID:     "42",
		Source: issue.SourceGitHub,
		Title:  "fix the parser",
	})
	if err != nil {
		t.Fatal(err)
	}
	run.Branch = "shipflow/" + run.ID
	run.Ports = []int{39000, 39001, 39002, 39003}
	return run
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	run := sampleRun(t)
	run.Phase = PhaseBuilt
	if err := store.Save(run); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(run.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Phase != PhaseBuilt || loaded.Issue.ID != "42" || loaded.Branch != run.Branch {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestFileStore_PrettyPrinted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	run := sampleRun(t)
	if err := store.Save(run); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, run.ID+".json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"phase\"") {
		t.Errorf("run record should be indented for human inspection:\n%s", data)
	}
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(sampleRun(t)); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("run-nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestFileStore_DeleteAndList(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a, b := sampleRun(t), sampleRun(t)
	for _, run := range []*Run{a, b} {
		if err := store.Save(run); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(a.ID); err != nil {
		t.Errorf("deleting a missing run should be a no-op, got %v", err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != b.ID {
		t.Errorf("List after delete = %+v", runs)
	}
}

func TestMemoryStore_CopiesOnLoad(t *testing.T) {
	store := NewMemoryStore()
	run := sampleRun(t)
	if err := store.Save(run); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	loaded.Phase = PhaseFailed

	again, err := store.Load(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Phase != PhasePlanned {
		t.Error("mutating a loaded run should not touch the stored record")
	}

	if _, err := store.Load("run-nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
