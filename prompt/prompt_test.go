package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_EmbeddedDefaults(t *testing.T) {
	l := NewLoader(t.TempDir())

	for _, name := range []string{Build, Review, Patch} {
		if !l.Exists(name) {
			t.Errorf("embedded template %s should exist", name)
		}
	}

	out, err := l.Render(Build, map[string]any{
		"Title":       "fix the port scan",
		"Description": "range end is off by one",
		"Branch":      "shipflow/run-1",
		"Labels":      []string{"bug"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"fix the port scan", "range end is off by one", "shipflow/run-1", "bug"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered build prompt missing %q", want)
		}
	}
}

func TestRender_PatchBlockers(t *testing.T) {
	l := NewLoader(t.TempDir())

	out, err := l.Render(Patch, map[string]any{
		"Branch":      "shipflow/run-1",
		"Attempt":     2,
		"MaxAttempts": 3,
		"Blockers":    []string{"nil deref in ledger", "missing lock release"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "attempt 2 of 3") {
		t.Errorf("patch prompt should show the attempt count:\n%s", out)
	}
	if !strings.Contains(out, "- nil deref in ledger") {
		t.Errorf("patch prompt should list blockers:\n%s", out)
	}
}

func TestRender_ProjectOverride(t *testing.T) {
	dir := t.TempDir()
	overrideDir := filepath.Join(dir, ".shipflow", "prompts")
	if err := os.MkdirAll(overrideDir, 0o755); err != nil {
		t.Fatal(err)
	}
	override := "custom build steps for {{.Title}}"
	if err := os.WriteFile(filepath.Join(overrideDir, "build.txt"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir)
	out, err := l.Render(Build, map[string]any{"Title": "thing"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "custom build steps for thing" {
		t.Errorf("override not used, got %q", out)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	l := NewLoader(t.TempDir())
	if _, err := l.Render("nope", nil); err == nil {
		t.Error("unknown template should error")
	}
}

func TestList_IncludesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	promptDir := filepath.Join(dir, "prompts")
	if err := os.MkdirAll(promptDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(promptDir, "custom.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names := NewLoader(dir).List()
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{Build, Review, Patch, "custom"} {
		if !have[want] {
			t.Errorf("List missing %s: %v", want, names)
		}
	}
}
