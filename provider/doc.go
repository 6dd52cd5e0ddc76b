// Package provider abstracts the git-hosting platforms behind three
// capability interfaces: issue access, code review, and notification.
//
// A resolved issue carries its source (github, gitlab, local, prompt), and
// that source alone selects the concrete providers for every later
// operation. The ambient repository's platform is consulted exactly once,
// at resolution time, to fill in an omitted source or project path; it is
// never re-derived at call time. Platform-specific comment functions are
// unexported so callers cannot bypass the Notifier contract.
//
// The Registry is the entry point:
//
//	reg := provider.NewRegistry(cfg, gitCtx, db)
//	iss, err := reg.Resolve(ctx, "gitlab:group/tool:17")
//	set, err := reg.Providers(iss)
//	err = set.Notes.Notify(ctx, provider.TargetIssue(iss), "starting work", agentID)
package provider
