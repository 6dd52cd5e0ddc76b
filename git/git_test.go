package git

import (
	"errors"
	"testing"
)

func newMockContext(t *testing.T, runner *MockRunner) *Context {
	t.Helper()
	g, err := NewContext(t.TempDir(), WithRunner(runner))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return g
}

func TestRemotes(t *testing.T) {
	runner := NewMockRunner()
	runner.Responses["remote -v"] = "origin\thttps://github.com/org/repo.git (fetch)\n" +
		"origin\thttps://github.com/org/repo.git (push)\n" +
		"mirror\thttps://gitlab.com/org/repo.git (fetch)\n" +
		"mirror\thttps://gitlab.com/org/repo.git (push)"

	g := newMockContext(t, runner)
	remotes, err := g.Remotes()
	if err != nil {
		t.Fatalf("Remotes: %v", err)
	}

	if len(remotes) != 2 {
		t.Fatalf("Remotes = %v, want 2 entries", remotes)
	}
	if remotes["origin"] != "https://github.com/org/repo.git" {
		t.Errorf("origin = %q", remotes["origin"])
	}
	if remotes["mirror"] != "https://gitlab.com/org/repo.git" {
		t.Errorf("mirror = %q", remotes["mirror"])
	}
}

func TestRemoteURL_NotFound(t *testing.T) {
	runner := NewMockRunner()
	runner.Errors["remote get-url upstream"] = errors.New("fatal: No such remote 'upstream'")

	g := newMockContext(t, runner)
	if _, err := g.RemoteURL("upstream"); !errors.Is(err, ErrRemoteNotFound) {
		t.Errorf("RemoteURL error = %v, want ErrRemoteNotFound", err)
	}
}

func TestCreateBranch_AlreadyExists(t *testing.T) {
	runner := NewMockRunner()
	runner.Errors["branch feature"] = errors.New("fatal: a branch named 'feature' already exists")

	g := newMockContext(t, runner)
	if err := g.CreateBranch("feature"); !errors.Is(err, ErrBranchExists) {
		t.Errorf("CreateBranch error = %v, want ErrBranchExists", err)
	}
}

func TestCommit_NothingToCommit(t *testing.T) {
	runner := NewMockRunner()
	runner.Errors["commit -m msg"] = errors.New("nothing to commit, working tree clean")

	g := newMockContext(t, runner)
	if err := g.Commit("msg"); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("Commit error = %v, want ErrNothingToCommit", err)
	}
}

func TestPush_SetUpstream(t *testing.T) {
	runner := NewMockRunner()
	g := newMockContext(t, runner)

	if err := g.Push("origin", "feature", true); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !runner.CalledWith("push", "-u", "origin", "feature") {
		t.Errorf("expected push -u origin feature, got %v", runner.Calls)
	}
}

func TestAddWorktree_FallsBackToExistingBranch(t *testing.T) {
	runner := NewMockRunner()
	path := t.TempDir() + "/wt"
	runner.Errors["worktree add -b feature "+path+" main"] = errors.New("branch exists")

	g := newMockContext(t, runner)
	if err := g.AddWorktree(path, "feature", "main"); err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}
	if !runner.CalledWith("worktree", "add", path, "feature") {
		t.Errorf("expected fallback without -b, got %v", runner.Calls)
	}
}

func TestAddWorktree_PathExists(t *testing.T) {
	g := newMockContext(t, NewMockRunner())
	existing := t.TempDir()

	if err := g.AddWorktree(existing, "feature", "main"); !errors.Is(err, ErrWorktreeExists) {
		t.Errorf("AddWorktree error = %v, want ErrWorktreeExists", err)
	}
}

func TestListWorktrees_Porcelain(t *testing.T) {
	runner := NewMockRunner()
	runner.Responses["worktree list --porcelain"] = `worktree /repo
HEAD aaaa
branch refs/heads/main

worktree /repo/.worktrees/run-1
HEAD bbbb
branch refs/heads/shipflow/run-1
`

	g := newMockContext(t, runner)
	wts, err := g.ListWorktrees()
	if err != nil {
		t.Fatalf("ListWorktrees: %v", err)
	}

	if len(wts) != 2 {
		t.Fatalf("got %d worktrees, want 2", len(wts))
	}
	if wts[1].Branch != "shipflow/run-1" {
		t.Errorf("Branch = %q, want shipflow/run-1", wts[1].Branch)
	}
	if wts[1].Commit != "bbbb" {
		t.Errorf("Commit = %q, want bbbb", wts[1].Commit)
	}
}

func TestSanitizeBranchName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"shipflow/run-42", "shipflow-run-42"},
		{"Fix/ISSUE_17", "fix-issue17"},
		{"--weird--", "weird"},
	}
	for _, tt := range tests {
		if got := SanitizeBranchName(tt.in); got != tt.want {
			t.Errorf("SanitizeBranchName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
