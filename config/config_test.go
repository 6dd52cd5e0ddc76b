package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxReviewAttempts != 3 {
		t.Errorf("MaxReviewAttempts = %d, want 3", cfg.MaxReviewAttempts)
	}
	if cfg.PortRangeStart != 39000 || cfg.PortRangeEnd != 39999 {
		t.Errorf("port range = %d-%d, want 39000-39999", cfg.PortRangeStart, cfg.PortRangeEnd)
	}
	if cfg.AgentBinary != "claude" {
		t.Errorf("AgentBinary = %q, want claude", cfg.AgentBinary)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipflow.yaml")
	yaml := strings.Join([]string{
		"gitlab_base_url: https://git.internal.example.com",
		"gitlab_hosts: [git.internal.example.com]",
		"max_review_attempts: 5",
		"ports_per_run: 2",
		"github_timeout: 10s",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitLabBaseURL != "https://git.internal.example.com" {
		t.Errorf("GitLabBaseURL = %q", cfg.GitLabBaseURL)
	}
	if len(cfg.GitLabHosts) != 1 || cfg.GitLabHosts[0] != "git.internal.example.com" {
		t.Errorf("GitLabHosts = %v", cfg.GitLabHosts)
	}
	if cfg.MaxReviewAttempts != 5 {
		t.Errorf("MaxReviewAttempts = %d, want 5", cfg.MaxReviewAttempts)
	}
	if cfg.GitHubTimeout != 10*time.Second {
		t.Errorf("GitHubTimeout = %v, want 10s", cfg.GitHubTimeout)
	}
	// Unset fields keep defaults.
	if cfg.WorktreeRoot != ".worktrees" {
		t.Errorf("WorktreeRoot = %q, want default", cfg.WorktreeRoot)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("Load of missing file: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipflow.yaml")
	if err := os.WriteFile(path, []byte("max_review_attempts: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHIPFLOW_MAX_REVIEW_ATTEMPTS", "7")
	t.Setenv("SHIPFLOW_AGENT_ID", "bot-7")
	t.Setenv("SHIPFLOW_GITLAB_HOSTS", "a.example.com, b.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxReviewAttempts != 7 {
		t.Errorf("MaxReviewAttempts = %d, want env override 7", cfg.MaxReviewAttempts)
	}
	if cfg.AgentID != "bot-7" {
		t.Errorf("AgentID = %q", cfg.AgentID)
	}
	if len(cfg.GitLabHosts) != 2 || cfg.GitLabHosts[1] != "b.example.com" {
		t.Errorf("GitLabHosts = %v", cfg.GitLabHosts)
	}
}

func TestLoad_TokenFallbacks(t *testing.T) {
	t.Setenv("SHIPFLOW_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")
	t.Setenv("GITLAB_TOKEN", "glpat_fallback")
	t.Setenv("SHIPFLOW_GITLAB_TOKEN", "glpat_specific")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHubToken != "ghp_fallback" {
		t.Errorf("GitHubToken = %q, want generic fallback", cfg.GitHubToken)
	}
	if cfg.GitLabToken != "glpat_specific" {
		t.Errorf("GitLabToken = %q, want prefixed var to win", cfg.GitLabToken)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero attempts", func(c *Config) { c.MaxReviewAttempts = 0 }, false},
		{"inverted range", func(c *Config) { c.PortRangeStart = 500; c.PortRangeEnd = 400 }, false},
		{"range too small", func(c *Config) { c.PortRangeStart = 100; c.PortRangeEnd = 101; c.PortsPerRun = 4 }, false},
		{"zero ports per run", func(c *Config) { c.PortsPerRun = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate() = %v, wantOK %v", err, tt.wantOK)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	cfg := Default()
	cfg.GitHubTimeout = 1 * time.Second
	cfg.GitLabTimeout = 2 * time.Second
	if cfg.Timeout("gitlab") != 2*time.Second {
		t.Error("gitlab should use GitLabTimeout")
	}
	if cfg.Timeout("github") != 1*time.Second {
		t.Error("github should use GitHubTimeout")
	}
}
