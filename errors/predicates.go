package errors

import "errors"

// IsResolution checks if an error is a reference-resolution failure.
func IsResolution(err error) bool {
	return errors.Is(err, ErrResolution)
}

// IsDependencyMissing checks if an error indicates a missing CLI tool.
func IsDependencyMissing(err error) bool {
	return errors.Is(err, ErrDependencyMissing)
}

// IsAuth checks if an error is authentication-related.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsConflict checks if an error reports conflicting platform state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsRateLimit checks if an error reports platform rate limiting.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// IsTimeout checks if an error reports a deadline being exceeded.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsIsolationViolation checks if an error reports a run-scoped config write
// outside a worktree.
func IsIsolationViolation(err error) bool {
	return errors.Is(err, ErrIsolationViolation)
}

// IsRetryable reports whether an error may succeed if the operation is
// retried later. Only transient classes qualify; conflicts and auth
// failures require operator action.
func IsRetryable(err error) bool {
	return IsRateLimit(err) || IsTimeout(err)
}
