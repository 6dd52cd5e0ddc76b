// Package shipflow orchestrates agentic developer workflows: it resolves
// issues from several trackers, isolates each run in a disposable git
// worktree, drives an agent through build and review phases, and ships
// the result as a platform code review.
//
// The module is organized into subpackages by domain:
//
//   - issue: canonical issue model and the issue reference grammar
//   - provider: issue, review, and notification capabilities for
//     GitHub, GitLab, a local SQLite tracker, and ad-hoc prompts
//   - issuedb: the SQLite store behind the local issue source
//   - git: git repository operations, branches, worktrees, pushes
//   - worktree: per-run sandboxes with port blocks and run-scoped config
//   - workflow: the phase state machine and the durable run store
//   - agent: execution wrapper around the coding-agent CLI
//   - prompt: agent instruction templates with project overrides
//   - notify: run-lifecycle event sinks (log, webhook, Slack)
//   - auth: GitHub App JWT minting
//   - config: file plus environment configuration
//   - errors: the shared error taxonomy
//   - testutil: temporary git repository fixtures
//
// # Quick start
//
//	cfg, _ := config.Load(".shipflow.yaml")
//	gitCtx, _ := git.NewContext(".")
//	registry := provider.NewRegistry(cfg, gitCtx, nil)
//
//	ledger, _ := worktree.NewFileLedger(".shipflow/ports.json",
//		cfg.PortRangeStart, cfg.PortRangeEnd)
//	sandboxes, _ := worktree.NewManager(gitCtx, ledger, cfg.WorktreeRoot, cfg.PortsPerRun)
//
//	store, _ := workflow.NewFileStore(cfg.StateDir)
//	machine, _ := workflow.NewMachine(workflow.Deps{
//		Resolver:  registry,
//		Store:     store,
//		Sandboxes: sandboxes,
//		Agent:     engine, // agent.New(...)
//		Prompts:   prompt.NewLoader("."),
//		Git:       gitCtx,
//	})
//
//	run, _ := machine.Plan(ctx, "github:42")
//	_ = machine.Resume(ctx, run.ID)
//
// See examples/basic for a complete runnable walkthrough.
package shipflow
