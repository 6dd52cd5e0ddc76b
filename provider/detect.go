package provider

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/shipflow/issue"
)

// Platform is the hosting platform of a repository.
type Platform string

const (
	PlatformGitHub  Platform = "github"
	PlatformGitLab  Platform = "gitlab"
	PlatformUnknown Platform = "unknown"
)

// Source converts a detected platform to an issue source.
// PlatformUnknown has no source; callers must require an explicit prefix.
func (p Platform) Source() (issue.Source, bool) {
	switch p {
	case PlatformGitHub:
		return issue.SourceGitHub, true
	case PlatformGitLab:
		return issue.SourceGitLab, true
	}
	return "", false
}

// PrimaryRemote is the remote consulted for platform detection. Secondary
// remotes (mirrors) never override it for unprefixed references.
const PrimaryRemote = "origin"

// DetectPlatform inspects the configured remotes and returns the hosting
// platform of the primary remote. extraGitLabHosts lists self-hosted GitLab
// hostnames beyond gitlab.com. Returns PlatformUnknown when the primary
// remote is missing or matches no known host.
func DetectPlatform(remotes map[string]string, extraGitLabHosts []string) Platform {
	url, ok := remotes[PrimaryRemote]
	if !ok {
		return PlatformUnknown
	}
	return platformOfURL(url, extraGitLabHosts)
}

func platformOfURL(remoteURL string, extraGitLabHosts []string) Platform {
	lower := strings.ToLower(remoteURL)

	if strings.Contains(lower, "github.com") {
		return PlatformGitHub
	}
	if strings.Contains(lower, "gitlab.com") || strings.Contains(lower, "gitlab.") {
		return PlatformGitLab
	}
	for _, host := range extraGitLabHosts {
		if host != "" && strings.Contains(lower, strings.ToLower(host)) {
			return PlatformGitLab
		}
	}
	return PlatformUnknown
}

// ParseProjectPath extracts "namespace/project" from a git remote URL,
// handling both SSH and HTTPS forms.
//
//	git@github.com:org/repo.git      -> org/repo
//	https://gitlab.com/group/app.git -> group/app
func ParseProjectPath(remoteURL string) (string, error) {
	if strings.HasPrefix(remoteURL, "git@") {
		_, path, ok := strings.Cut(remoteURL, ":")
		if !ok {
			return "", fmt.Errorf("invalid SSH remote URL %q", remoteURL)
		}
		path = strings.TrimSuffix(path, ".git")
		if strings.Count(path, "/") < 1 {
			return "", fmt.Errorf("invalid repository path %q", path)
		}
		return path, nil
	}

	trimmed := strings.TrimPrefix(remoteURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	// host/namespace/project, where namespace may nest (GitLab subgroups).
	_, path, ok := strings.Cut(trimmed, "/")
	if !ok || strings.Count(path, "/") < 1 {
		return "", fmt.Errorf("invalid remote URL %q", remoteURL)
	}
	return path, nil
}

// BaseURL extracts the scheme+host of an HTTP(S) remote URL, used to point
// API clients at self-hosted instances. SSH URLs map to https on the host.
func BaseURL(remoteURL string) string {
	if strings.HasPrefix(remoteURL, "git@") {
		host, _, ok := strings.Cut(strings.TrimPrefix(remoteURL, "git@"), ":")
		if !ok {
			return ""
		}
		return "https://" + host
	}
	trimmed := strings.TrimPrefix(remoteURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	host, _, ok := strings.Cut(trimmed, "/")
	if !ok {
		return ""
	}
	return "https://" + host
}
