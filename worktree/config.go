package worktree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	sferrors "github.com/randalmurphal/shipflow/errors"
)

// Run-scoped configuration file names. These exist only inside a run's
// worktree; finding one in the parent repository means a past run leaked.
const (
	ToolConnectorFile = ".shipflow-tools.yaml"
	PortMapFile       = ".shipflow-ports.yaml"
	BrowserConfigFile = ".shipflow-browser.yaml"
)

// RunScopedFiles lists every run-scoped config file name, in sweep order.
func RunScopedFiles() []string {
	return []string{ToolConnectorFile, PortMapFile, BrowserConfigFile}
}

// toolConnectorManifest points per-run tooling at the sandbox instead of
// the shared repository.
type toolConnectorManifest struct {
	RunID     string            `yaml:"run_id"`
	Worktree  string            `yaml:"worktree"`
	Endpoints map[string]string `yaml:"endpoints"`
}

// portMap assigns the allocated ports to well-known roles.
type portMap struct {
	RunID string         `yaml:"run_id"`
	Ports map[string]int `yaml:"ports"`
}

// browserConfig configures browser automation against the sandbox.
type browserConfig struct {
	RunID         string `yaml:"run_id"`
	DebuggingPort int    `yaml:"remote_debugging_port"`
	ProfileDir    string `yaml:"profile_dir"`
}

// portRoles names the allocated ports in order. Blocks larger than the
// role list keep their extras unnamed but reserved.
var portRoles = []string{"app", "api", "browser_debug", "aux"}

// writeRunConfigs materializes the run-scoped config files inside the
// sandbox. Every write passes through the isolation guard.
func writeRunConfigs(s *Sandbox) error {
	if err := os.MkdirAll(s.Path, 0o755); err != nil {
		return fmt.Errorf("create sandbox dir: %w", err)
	}

	named := make(map[string]int, len(s.Ports))
	for i, p := range s.Ports {
		role := fmt.Sprintf("extra_%d", i)
		if i < len(portRoles) {
			role = portRoles[i]
		}
		named[role] = p
	}

	endpoints := make(map[string]string, len(named))
	for role, p := range named {
		endpoints[role] = fmt.Sprintf("http://127.0.0.1:%d", p)
	}

	files := map[string]any{
		ToolConnectorFile: toolConnectorManifest{
			RunID:     s.RunID,
			Worktree:  s.Path,
			Endpoints: endpoints,
		},
		PortMapFile: portMap{
			RunID: s.RunID,
			Ports: named,
		},
		BrowserConfigFile: browserConfig{
			RunID:         s.RunID,
			DebuggingPort: named["browser_debug"],
			ProfileDir:    filepath.Join(s.Path, ".shipflow-browser-profile"),
		},
	}

	for name, doc := range files {
		data, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := writeInsideWorktree(s.Path, filepath.Join(s.Path, name), data); err != nil {
			return err
		}
	}
	return nil
}

// writeInsideWorktree writes data to path after verifying path stays inside
// worktree. A violation aborts immediately; run-scoped config must never
// land outside the sandbox.
func writeInsideWorktree(worktree, path string, data []byte) error {
	absWorktree, err := filepath.Abs(worktree)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(absWorktree, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &sferrors.IsolationViolationError{Path: path, Worktree: worktree}
	}

	return os.WriteFile(absPath, data, 0o644)
}

// CleanupStaleConfig removes any run-scoped config files from the parent
// repository and registers their patterns in .git/info/exclude. Past bugs
// or manual edits may have left files behind with stale paths; sweeping
// before each new worktree keeps the next run from bootstrapping against a
// directory that no longer exists.
func CleanupStaleConfig(parentRepoPath string) error {
	var removed []string
	for _, name := range RunScopedFiles() {
		path := filepath.Join(parentRepoPath, name)
		err := os.Remove(path)
		if err == nil {
			removed = append(removed, name)
			continue
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("sweep %s: %w", path, err)
		}
	}
	if len(removed) > 0 {
		logStaleSweep(parentRepoPath, removed)
	}

	return ensureExcluded(parentRepoPath, RunScopedFiles())
}

// ensureExcluded appends missing patterns to .git/info/exclude so the
// run-scoped files can never be committed even if they leak.
func ensureExcluded(repoPath string, patterns []string) error {
	excludePath := filepath.Join(repoPath, ".git", "info", "exclude")

	existing, err := os.ReadFile(excludePath)
	if err != nil && !os.IsNotExist(err) {
		// A worktree checkout has a .git file, not a directory; exclusion
		// then lives with the main repository and is already handled there.
		return nil
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, p := range patterns {
		if !present[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return fmt.Errorf("create exclude dir: %w", err)
	}
	f, err := os.OpenFile(excludePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()

	content := strings.Join(missing, "\n") + "\n"
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		content = "\n" + content
	}
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("append exclude patterns: %w", err)
	}
	return nil
}
