package git

import (
	"os"
	"strings"
)

// WorktreeInfo represents an active git worktree.
type WorktreeInfo struct {
	Path   string // Filesystem path to the worktree
	Branch string // Branch checked out in the worktree
	Commit string // HEAD commit SHA
}

// AddWorktree creates a worktree at path with a new branch cut from base.
// If the branch already exists it is checked out instead of created.
func (g *Context) AddWorktree(path, branch, base string) error {
	if _, err := os.Stat(path); err == nil {
		return ErrWorktreeExists
	}

	if base == "" {
		base = "HEAD"
	}

	_, err := g.runGit("worktree", "add", "-b", branch, path, base)
	if err != nil {
		// Branch may already exist, try checking it out instead.
		if _, err = g.runGit("worktree", "add", path, branch); err != nil {
			return &Error{Op: "worktree add", Err: err}
		}
	}
	return nil
}

// RemoveWorktree removes a worktree and its registration.
// Falls back to --force when the worktree has uncommitted changes.
func (g *Context) RemoveWorktree(path string) error {
	if _, err := g.runGit("worktree", "remove", path); err != nil {
		if _, err = g.runGit("worktree", "remove", "--force", path); err != nil {
			return &Error{Op: "worktree remove", Err: err}
		}
	}
	return nil
}

// ListWorktrees returns all active worktrees, parsed from porcelain output.
func (g *Context) ListWorktrees() ([]WorktreeInfo, error) {
	output, err := g.runGit("worktree", "list", "--porcelain")
	if err != nil {
		return nil, &Error{Op: "worktree list", Err: err}
	}

	var worktrees []WorktreeInfo
	var current WorktreeInfo

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current.Path != "" {
				worktrees = append(worktrees, current)
				current = WorktreeInfo{}
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "detached":
			current.Branch = "(detached)"
		}
	}
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	return worktrees, nil
}

// PruneWorktrees removes stale worktree administrative files.
func (g *Context) PruneWorktrees() error {
	if _, err := g.runGit("worktree", "prune"); err != nil {
		return &Error{Op: "worktree prune", Err: err}
	}
	return nil
}
