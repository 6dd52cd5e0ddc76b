package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors, one per failure class. The structured types below unwrap
// to these so callers can use errors.Is without caring about the details.
var (
	// ErrResolution indicates an issue reference could not be resolved.
	ErrResolution = errors.New("issue reference could not be resolved")

	// ErrDependencyMissing indicates a required CLI tool is not installed.
	ErrDependencyMissing = errors.New("required tool not installed")

	// ErrAuth indicates an invalid or expired platform credential.
	ErrAuth = errors.New("platform authentication failed")

	// ErrConflict indicates conflicting state on the platform
	// (duplicate review, unmergeable branch).
	ErrConflict = errors.New("conflicting state")

	// ErrRateLimit indicates the platform rejected the call due to rate limiting.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout indicates a provider call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrIsolationViolation indicates an attempted write of run-scoped
	// configuration outside a worktree. This must never happen; callers
	// abort immediately instead of degrading.
	ErrIsolationViolation = errors.New("isolation violation")
)

// ResolutionError reports an ambiguous or misrouted issue reference.
type ResolutionError struct {
	Ref        string // The reference as given by the caller
	Reason     string // Why it could not be resolved
	Suggestion string // Corrective action (e.g. use the extended form)
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "resolve %q: %s", e.Ref, e.Reason)
	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

func (e *ResolutionError) Unwrap() error { return ErrResolution }

// DependencyMissingError reports a missing external CLI tool.
type DependencyMissingError struct {
	Tool    string // Binary name that was not found
	Install string // Installation guidance
}

func (e *DependencyMissingError) Error() string {
	if e.Install != "" {
		return fmt.Sprintf("%s not found in PATH\n\n%s", e.Tool, e.Install)
	}
	return fmt.Sprintf("%s not found in PATH", e.Tool)
}

func (e *DependencyMissingError) Unwrap() error { return ErrDependencyMissing }

// AuthError reports an invalid or expired credential for a platform.
type AuthError struct {
	Platform string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s authentication failed: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s authentication failed", e.Platform)
}

func (e *AuthError) Unwrap() error { return ErrAuth }

// ConflictError reports conflicting platform state, such as an already-open
// review for a branch or an unmergeable merge request.
type ConflictError struct {
	Op     string // Operation that hit the conflict (e.g. "create review")
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	}
	return e.Op + ": conflict"
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// RateLimitError reports platform rate limiting.
type RateLimitError struct {
	Platform   string
	RetryAfter time.Duration // Zero when the platform gave no hint
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Platform, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Platform)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimit }

// TimeoutError reports a provider call that exceeded its configured deadline.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Op, e.After)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// IsolationViolationError reports an attempted run-scoped config write
// outside a worktree directory.
type IsolationViolationError struct {
	Path     string // Offending target path
	Worktree string // Worktree the write should have stayed inside
}

func (e *IsolationViolationError) Error() string {
	return fmt.Sprintf("refusing to write run-scoped config %s outside worktree %s", e.Path, e.Worktree)
}

func (e *IsolationViolationError) Unwrap() error { return ErrIsolationViolation }
