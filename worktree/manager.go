package worktree

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/randalmurphal/shipflow/git"
)

// Sandbox is the isolated execution environment owned by one run: a private
// worktree on its own branch plus an exclusive block of local ports.
type Sandbox struct {
	RunID  string `json:"runId"`
	Path   string `json:"path"`
	Branch string `json:"branch"`
	Ports  []int  `json:"ports"`
}

// Manager creates and tears down per-run sandboxes. The shared parent
// repository is never mutated by run-scoped configuration; the manager
// sweeps leaked files from it before every create.
type Manager struct {
	git         *git.Context
	ledger      Ledger
	root        string
	portsPerRun int
}

// NewManager creates a sandbox manager. root is the directory worktrees are
// created under; portsPerRun is the size of each run's port block.
func NewManager(gitCtx *git.Context, ledger Ledger, root string, portsPerRun int) (*Manager, error) {
	if gitCtx == nil {
		return nil, fmt.Errorf("git context is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("port ledger is required")
	}
	if portsPerRun < 1 {
		return nil, fmt.Errorf("ports per run must be >= 1, got %d", portsPerRun)
	}
	if root == "" {
		root = ".worktrees"
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(gitCtx.RepoPath(), root)
	}
	return &Manager{
		git:         gitCtx,
		ledger:      ledger,
		root:        root,
		portsPerRun: portsPerRun,
	}, nil
}

// Create builds the sandbox for runID: sweeps stale config from the parent,
// claims a port block, checks out a fresh worktree branch, and writes the
// run-scoped config files inside it.
func (m *Manager) Create(runID string) (*Sandbox, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	if err := CleanupStaleConfig(m.git.RepoPath()); err != nil {
		return nil, fmt.Errorf("sweep parent repo: %w", err)
	}

	ports, err := m.ledger.Allocate(runID, m.portsPerRun)
	if err != nil {
		return nil, fmt.Errorf("allocate ports: %w", err)
	}

	sandbox := &Sandbox{
		RunID:  runID,
		Path:   filepath.Join(m.root, runID),
		Branch: "shipflow/" + git.SanitizeBranchName(runID),
		Ports:  ports,
	}

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		m.releasePorts(runID)
		return nil, fmt.Errorf("create worktree root: %w", err)
	}

	if err := m.git.AddWorktree(sandbox.Path, sandbox.Branch, ""); err != nil {
		m.releasePorts(runID)
		return nil, err
	}

	if err := writeRunConfigs(sandbox); err != nil {
		m.teardown(sandbox)
		return nil, err
	}

	slog.Info("sandbox created",
		"run", runID,
		"path", sandbox.Path,
		"branch", sandbox.Branch,
		"ports", sandbox.Ports)
	return sandbox, nil
}

// Destroy removes runID's worktree and releases its ports.
func (m *Manager) Destroy(runID string) error {
	if runID == "" {
		return fmt.Errorf("run ID is required")
	}
	return m.teardown(&Sandbox{
		RunID:  runID,
		Path:   filepath.Join(m.root, runID),
		Branch: "shipflow/" + git.SanitizeBranchName(runID),
	})
}

// Sandbox returns the sandbox layout for a runID without touching the
// filesystem, for resuming persisted runs.
func (m *Manager) Sandbox(runID string, ports []int) *Sandbox {
	return &Sandbox{
		RunID:  runID,
		Path:   filepath.Join(m.root, runID),
		Branch: "shipflow/" + git.SanitizeBranchName(runID),
		Ports:  ports,
	}
}

func (m *Manager) teardown(s *Sandbox) error {
	var firstErr error

	if _, err := os.Stat(s.Path); err == nil {
		if err := m.git.RemoveWorktree(s.Path); err != nil {
			firstErr = err
		}
		if err := os.RemoveAll(s.Path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove sandbox dir: %w", err)
		}
	}

	if err := m.ledger.Release(s.RunID); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("release ports: %w", err)
	}

	if firstErr == nil {
		slog.Info("sandbox destroyed", "run", s.RunID, "path", s.Path)
	}
	return firstErr
}

func (m *Manager) releasePorts(runID string) {
	if err := m.ledger.Release(runID); err != nil {
		slog.Warn("failed to release ports", "run", runID, "error", err)
	}
}

func logStaleSweep(parent string, removed []string) {
	slog.Warn("removed stale run-scoped config from parent repo",
		"repo", parent,
		"files", removed)
}
