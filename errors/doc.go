// Package errors defines the typed failure taxonomy shared by all shipflow
// packages.
//
// Provider and workflow code never returns raw platform/API errors upward.
// Failures are classified into one of the structured types in this package
// (ResolutionError, DependencyMissingError, AuthError, ConflictError,
// RateLimitError, TimeoutError, IsolationViolationError), each of which
// unwraps to a package-level sentinel so callers can branch with errors.Is.
//
// Operator-facing errors (ResolutionError, DependencyMissingError) carry a
// Suggestion string with the corrective action, which is rendered as part of
// the error message.
package errors
