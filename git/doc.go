// Package git wraps the git CLI for the repository operations shipflow
// needs: remote inspection, branches, commits, pushes and worktrees.
//
// All commands go through a CommandRunner so tests can substitute a mock
// instead of a real git binary. Operations return typed errors
// (ErrNotGitRepo, ErrWorktreeExists, ...) wrapped in *Error with the failed
// operation attached.
package git
