// Package config resolves shipflow configuration from defaults, an optional
// YAML file and SHIPFLOW_* environment variables, in increasing priority.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to field names for environment overrides,
// e.g. SHIPFLOW_GITHUB_TOKEN.
const EnvPrefix = "SHIPFLOW_"

// Config holds all process-lifetime configuration. Providers and the
// worktree manager are constructed from it once; nothing here mutates at
// runtime.
type Config struct {
	// Platform credentials. The generic GITHUB_TOKEN / GITLAB_TOKEN
	// environment variables are honored as fallbacks.
	GitHubToken string `yaml:"github_token"`
	GitLabToken string `yaml:"gitlab_token"`

	// GitLabBaseURL points at a self-hosted instance ("" = gitlab.com).
	GitLabBaseURL string `yaml:"gitlab_base_url"`

	// GitLabHosts lists additional self-hosted GitLab hostnames recognized
	// during platform detection.
	GitLabHosts []string `yaml:"gitlab_hosts"`

	// GitHub App credentials, used instead of GitHubToken when set.
	GitHubAppID      string `yaml:"github_app_id"`
	GitHubAppKeyPath string `yaml:"github_app_key_path"`

	// MaxReviewAttempts bounds the reviewing retry loop.
	MaxReviewAttempts int `yaml:"max_review_attempts"`

	// Worktree isolation settings.
	WorktreeRoot   string `yaml:"worktree_root"`   // default ".worktrees"
	PortRangeStart int    `yaml:"port_range_start"` // default 39000
	PortRangeEnd   int    `yaml:"port_range_end"`   // default 39999
	PortsPerRun    int    `yaml:"ports_per_run"`    // default 4

	// StateDir is where run records and the port ledger live.
	StateDir string `yaml:"state_dir"`

	// LocalIssueDB is the SQLite path backing the "local" source.
	LocalIssueDB string `yaml:"local_issue_db"`

	// Agent engine settings.
	AgentBinary string `yaml:"agent_binary"` // default "claude"
	AgentID     string `yaml:"agent_id"`     // bot identity for notifications

	// Per-platform provider call timeouts.
	GitHubTimeout time.Duration `yaml:"github_timeout"`
	GitLabTimeout time.Duration `yaml:"gitlab_timeout"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		MaxReviewAttempts: 3,
		WorktreeRoot:      ".worktrees",
		PortRangeStart:    39000,
		PortRangeEnd:      39999,
		PortsPerRun:       4,
		StateDir:          ".shipflow",
		LocalIssueDB:      ".shipflow/issues.db",
		AgentBinary:       "claude",
		AgentID:           "shipflow",
		GitHubTimeout:     30 * time.Second,
		GitLabTimeout:     45 * time.Second,
	}
}

// Load resolves configuration. path may be empty or point at a YAML file;
// a missing file is not an error. Environment variables win over the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDur := func(dst *time.Duration, key string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setStr(&c.GitHubToken, "GITHUB_TOKEN")
	setStr(&c.GitLabToken, "GITLAB_TOKEN")
	setStr(&c.GitLabBaseURL, "GITLAB_BASE_URL")
	setStr(&c.GitHubAppID, "GITHUB_APP_ID")
	setStr(&c.GitHubAppKeyPath, "GITHUB_APP_KEY_PATH")
	setStr(&c.WorktreeRoot, "WORKTREE_ROOT")
	setStr(&c.StateDir, "STATE_DIR")
	setStr(&c.LocalIssueDB, "LOCAL_ISSUE_DB")
	setStr(&c.AgentBinary, "AGENT_BINARY")
	setStr(&c.AgentID, "AGENT_ID")
	setInt(&c.MaxReviewAttempts, "MAX_REVIEW_ATTEMPTS")
	setInt(&c.PortRangeStart, "PORT_RANGE_START")
	setInt(&c.PortRangeEnd, "PORT_RANGE_END")
	setInt(&c.PortsPerRun, "PORTS_PER_RUN")
	setDur(&c.GitHubTimeout, "GITHUB_TIMEOUT")
	setDur(&c.GitLabTimeout, "GITLAB_TIMEOUT")

	if v := os.Getenv(EnvPrefix + "GITLAB_HOSTS"); v != "" {
		c.GitLabHosts = splitHosts(v)
	}

	// Generic token fallbacks, same convention devflow used.
	if c.GitHubToken == "" {
		c.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}
	if c.GitLabToken == "" {
		c.GitLabToken = os.Getenv("GITLAB_TOKEN")
	}
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.MaxReviewAttempts < 1 {
		return fmt.Errorf("max_review_attempts must be >= 1, got %d", c.MaxReviewAttempts)
	}
	if c.PortRangeStart <= 0 || c.PortRangeEnd <= 0 || c.PortRangeEnd < c.PortRangeStart {
		return fmt.Errorf("invalid port range %d-%d", c.PortRangeStart, c.PortRangeEnd)
	}
	if c.PortsPerRun < 1 {
		return fmt.Errorf("ports_per_run must be >= 1, got %d", c.PortsPerRun)
	}
	if span := c.PortRangeEnd - c.PortRangeStart + 1; span < c.PortsPerRun {
		return fmt.Errorf("port range %d-%d too small for %d ports per run",
			c.PortRangeStart, c.PortRangeEnd, c.PortsPerRun)
	}
	return nil
}

// Timeout returns the provider call timeout for a platform name.
func (c Config) Timeout(platform string) time.Duration {
	switch platform {
	case "gitlab":
		return c.GitLabTimeout
	default:
		return c.GitHubTimeout
	}
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
