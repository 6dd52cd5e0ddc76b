// Package worktree gives each workflow run an isolated, disposable sandbox:
// a git worktree on a private branch, an exclusive block of local ports,
// and run-scoped configuration files that exist only inside the sandbox.
//
// Two layers defend the shared parent repository. Run-scoped config writes
// pass an isolation guard that aborts with IsolationViolationError if the
// target falls outside the worktree, and CleanupStaleConfig sweeps leaked
// files from the parent before every new sandbox while keeping the file
// patterns in .git/info/exclude.
package worktree
