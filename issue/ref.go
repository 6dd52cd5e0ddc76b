package issue

import (
	"strings"

	sferrors "github.com/randalmurphal/shipflow/errors"
)

// Ref is a parsed issue reference.
//
// Two forms are accepted:
//
//	Simple:   [source:]localID            e.g. "42", "github:42"
//	Extended: source:projectPath:localID  e.g. "gitlab:group/tool:17"
//
// A simple reference without a source relies on platform detection of the
// current repository. The extended form fully qualifies a remote project and
// is required for any cross-repository reference.
type Ref struct {
	Source      Source // Empty when the simple form omitted it
	ProjectPath string // Set only for the extended form
	LocalID     string
}

// Extended reports whether the reference used the fully qualified form.
func (r Ref) Extended() bool {
	return r.ProjectPath != ""
}

// ParseRef parses a reference string. It is a pure syntactic operation;
// source/platform mismatch policy is enforced at resolution time.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, &sferrors.ResolutionError{
			Ref:    raw,
			Reason: "empty reference",
		}
	}

	parts := strings.SplitN(raw, ":", 3)
	switch len(parts) {
	case 1:
		// Bare local ID; source comes from platform detection.
		return Ref{LocalID: parts[0]}, nil

	case 2:
		src := Source(strings.ToLower(parts[0]))
		if !src.Valid() {
			return Ref{}, &sferrors.ResolutionError{
				Ref:        raw,
				Reason:     "unknown source " + parts[0],
				Suggestion: "Valid sources are github, gitlab, local and prompt.",
			}
		}
		if parts[1] == "" {
			return Ref{}, &sferrors.ResolutionError{
				Ref:    raw,
				Reason: "missing issue ID after source",
			}
		}
		return Ref{Source: src, LocalID: parts[1]}, nil

	default:
		src := Source(strings.ToLower(parts[0]))
		if !src.Valid() {
			return Ref{}, &sferrors.ResolutionError{
				Ref:        raw,
				Reason:     "unknown source " + parts[0],
				Suggestion: "Valid sources are github, gitlab, local and prompt.",
			}
		}
		if !src.Remote() {
			// local/prompt issues have no project path by definition; the
			// prompt text may legitimately contain colons though, so fold
			// everything after the source back into the local ID.
			return Ref{Source: src, LocalID: parts[1] + ":" + parts[2]}, nil
		}
		if parts[1] == "" || parts[2] == "" {
			return Ref{}, &sferrors.ResolutionError{
				Ref:        raw,
				Reason:     "extended reference needs source:projectPath:localID",
				Suggestion: "Example: gitlab:group/project:17",
			}
		}
		return Ref{Source: src, ProjectPath: parts[1], LocalID: parts[2]}, nil
	}
}
