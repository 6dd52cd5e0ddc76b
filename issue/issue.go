// Package issue defines the canonical issue model and the reference grammar
// used to address issues across hosting platforms.
package issue

import (
	"fmt"
	"sort"
)

// Source identifies the platform hosting an issue. An issue belongs to
// exactly one source, fixed at resolution time; all later provider routing
// derives from it and never from the ambient repository.
type Source string

const (
	SourceGitHub Source = "github"
	SourceGitLab Source = "gitlab"
	SourceLocal  Source = "local"
	SourcePrompt Source = "prompt"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceGitHub, SourceGitLab, SourceLocal, SourcePrompt:
		return true
	}
	return false
}

// Remote reports whether the source requires network access to a platform.
// Local and prompt issues never consult a remote.
func (s Source) Remote() bool {
	return s == SourceGitHub || s == SourceGitLab
}

// Issue is the canonical representation of a trackable unit of work,
// independent of the platform that hosts it.
type Issue struct {
	// ID is the platform-native identifier (numeric for GitHub/GitLab,
	// opaque for local and prompt issues).
	ID string `json:"id"`

	// Source is the hosting platform. Immutable once resolved.
	Source Source `json:"source"`

	// ProjectPath is the namespace/project the issue belongs to. Required
	// for extended (cross-repository) references; empty means the current
	// repository's project.
	ProjectPath string `json:"projectPath,omitempty"`

	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// HasLabel reports whether the issue carries the given label.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AddLabel adds a label if not already present, keeping labels sorted.
func (i *Issue) AddLabel(label string) {
	if i.HasLabel(label) {
		return
	}
	i.Labels = append(i.Labels, label)
	sort.Strings(i.Labels)
}

// String returns a short human-readable identifier like "github:org/repo#42".
func (i *Issue) String() string {
	if i.ProjectPath != "" {
		return fmt.Sprintf("%s:%s#%s", i.Source, i.ProjectPath, i.ID)
	}
	return fmt.Sprintf("%s:#%s", i.Source, i.ID)
}
