package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/shipflow/agent"
	"github.com/randalmurphal/shipflow/git"
	"github.com/randalmurphal/shipflow/issue"
	"github.com/randalmurphal/shipflow/notify"
	"github.com/randalmurphal/shipflow/prompt"
	"github.com/randalmurphal/shipflow/provider"
	"github.com/randalmurphal/shipflow/worktree"
)

// ErrReviewExhausted is returned when a run still has blocker findings
// after the configured number of review attempts.
var ErrReviewExhausted = errors.New("review attempts exhausted")

// DefaultMaxReviewAttempts bounds the reviewing self-loop.
const DefaultMaxReviewAttempts = 3

// Resolver turns issue references into issues and issues into provider
// sets. *provider.Registry satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*issue.Issue, error)
	Providers(iss *issue.Issue) (provider.Set, error)
}

// SandboxManager creates and destroys per-run sandboxes. *worktree.Manager
// satisfies it.
type SandboxManager interface {
	Create(runID string) (*worktree.Sandbox, error)
	Destroy(runID string) error
}

// Deps holds the required collaborators of a Machine.
type Deps struct {
	Resolver  Resolver
	Store     Store
	Sandboxes SandboxManager
	Agent     agent.Runner
	Prompts   *prompt.Loader
	Git       *git.Context
}

// Machine drives runs through the phase lifecycle. Each phase method
// loads the run, performs its effects, and persists the new phase before
// returning, so a run can always be resumed from its stored record.
type Machine struct {
	deps Deps

	events            notify.Notifier
	maxReviewAttempts int
	agentID           string
	targetBranch      string
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithEvents delivers run-lifecycle events to the given notifier.
func WithEvents(n notify.Notifier) MachineOption {
	return func(m *Machine) { m.events = n }
}

// WithMaxReviewAttempts bounds the reviewing self-loop.
func WithMaxReviewAttempts(n int) MachineOption {
	return func(m *Machine) {
		if n > 0 {
			m.maxReviewAttempts = n
		}
	}
}

// WithAgentID sets the identity stamped on platform notifications.
func WithAgentID(id string) MachineOption {
	return func(m *Machine) {
		if id != "" {
			m.agentID = id
		}
	}
}

// WithTargetBranch sets the branch reviews merge into.
func WithTargetBranch(branch string) MachineOption {
	return func(m *Machine) {
		if branch != "" {
			m.targetBranch = branch
		}
	}
}

// NewMachine creates a workflow machine.
func NewMachine(deps Deps, opts ...MachineOption) (*Machine, error) {
	switch {
	case deps.Resolver == nil:
		return nil, fmt.Errorf("resolver is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("run store is required")
	case deps.Sandboxes == nil:
		return nil, fmt.Errorf("sandbox manager is required")
	case deps.Agent == nil:
		return nil, fmt.Errorf("agent runner is required")
	case deps.Prompts == nil:
		return nil, fmt.Errorf("prompt loader is required")
	case deps.Git == nil:
		return nil, fmt.Errorf("git context is required")
	}

	m := &Machine{
		deps:              deps,
		maxReviewAttempts: DefaultMaxReviewAttempts,
		agentID:           "shipflow",
		targetBranch:      "main",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Plan resolves the issue reference, provisions a sandbox, and persists
// the run in the planned phase. The sandbox is torn down again if the
// record cannot be saved.
func (m *Machine) Plan(ctx context.Context, issueRef string) (*Run, error) {
	iss, err := m.deps.Resolver.Resolve(ctx, issueRef)
	if err != nil {
		return nil, err
	}

	run, err := NewRun(iss)
	if err != nil {
		return nil, err
	}

	sb, err := m.deps.Sandboxes.Create(run.ID)
	if err != nil {
		return nil, fmt.Errorf("provision sandbox: %w", err)
	}
	run.WorktreePath = sb.Path
	run.Branch = sb.Branch
	run.Ports = sb.Ports

	if err := m.deps.Store.Save(run); err != nil {
		if derr := m.deps.Sandboxes.Destroy(run.ID); derr != nil {
			slog.Warn("sandbox teardown after failed save", "run_id", run.ID, "error", derr)
		}
		return nil, err
	}

	slog.Info("run planned", "run_id", run.ID, "issue", iss.String(), "branch", run.Branch)
	m.emit(ctx, notify.EventRunPlanned, run, "run planned for "+iss.String(), notify.SeverityInfo)
	return run, nil
}

// Build runs the agent against the issue inside the run's worktree and
// advances the run to built.
func (m *Machine) Build(ctx context.Context, runID string) error {
	run, err := m.deps.Store.Load(runID)
	if err != nil {
		return err
	}
	if run.Phase != PhasePlanned {
		return fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, EventBuild, run.Phase)
	}

	p, err := m.deps.Prompts.Render(prompt.Build, map[string]any{
		"Title":       run.Issue.Title,
		"Description": run.Issue.Description,
		"Labels":      run.Issue.Labels,
		"Branch":      run.Branch,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := m.deps.Agent.Run(ctx, p, agent.WithWorkDir(run.WorktreePath))
	if err != nil {
		m.fail(ctx, run, fmt.Errorf("build phase: %w", err))
		return err
	}
	run.AgentSession = res.SessionID
	slog.Debug("build agent run finished", "run_id", run.ID,
		"duration", time.Since(start), "tokens_out", res.TokensOut)

	if err := run.advance(EventBuild); err != nil {
		return err
	}
	if err := m.deps.Store.Save(run); err != nil {
		return err
	}
	m.emit(ctx, notify.EventPhaseCompleted, run, "build phase completed", notify.SeverityInfo)
	return nil
}

// Review runs bounded review/patch cycles until no blocker findings
// remain or the attempt budget is spent. Exhaustion fails the run with
// the outstanding blockers attached.
func (m *Machine) Review(ctx context.Context, runID string) error {
	run, err := m.deps.Store.Load(runID)
	if err != nil {
		return err
	}
	if run.Phase != PhaseBuilt && run.Phase != PhaseReviewing {
		return fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, EventStartReview, run.Phase)
	}

	for run.ReviewAttempts < m.maxReviewAttempts {
		event := EventStartReview
		if run.Phase == PhaseReviewing {
			event = EventRetryReview
		}
		if err := run.advance(event); err != nil {
			return err
		}
		run.ReviewAttempts++
		if err := m.deps.Store.Save(run); err != nil {
			return err
		}

		blockers, err := m.reviewPass(ctx, run)
		if err != nil {
			m.fail(ctx, run, fmt.Errorf("review attempt %d: %w", run.ReviewAttempts, err))
			return err
		}
		run.Blockers = blockers

		if len(blockers) == 0 {
			if err := run.advance(EventApprove); err != nil {
				return err
			}
			if err := m.deps.Store.Save(run); err != nil {
				return err
			}
			m.emit(ctx, notify.EventPhaseCompleted, run, "review phase completed", notify.SeverityInfo)
			return nil
		}

		slog.Info("review found blockers", "run_id", run.ID,
			"attempt", run.ReviewAttempts, "blockers", len(blockers))

		if run.ReviewAttempts >= m.maxReviewAttempts {
			break
		}
		if err := m.patchPass(ctx, run); err != nil {
			m.fail(ctx, run, fmt.Errorf("patch attempt %d: %w", run.ReviewAttempts, err))
			return err
		}
	}

	m.emit(ctx, notify.EventReviewExhausted, run,
		fmt.Sprintf("blockers remain after %d review attempts", run.ReviewAttempts),
		notify.SeverityWarning)
	exhausted := fmt.Errorf("%w after %d attempts: %d blockers remain",
		ErrReviewExhausted, run.ReviewAttempts, len(run.Blockers))
	m.fail(ctx, run, exhausted)
	return exhausted
}

func (m *Machine) reviewPass(ctx context.Context, run *Run) ([]string, error) {
	p, err := m.deps.Prompts.Render(prompt.Review, map[string]any{
		"Title":       run.Issue.Title,
		"Description": run.Issue.Description,
		"Branch":      run.Branch,
	})
	if err != nil {
		return nil, err
	}
	res, err := m.deps.Agent.Run(ctx, p, agent.WithWorkDir(run.WorktreePath))
	if err != nil {
		return nil, err
	}
	return Blockers(ParseFindings(res.Output)), nil
}

func (m *Machine) patchPass(ctx context.Context, run *Run) error {
	p, err := m.deps.Prompts.Render(prompt.Patch, map[string]any{
		"Branch":      run.Branch,
		"Attempt":     run.ReviewAttempts,
		"MaxAttempts": m.maxReviewAttempts,
		"Blockers":    run.Blockers,
	})
	if err != nil {
		return err
	}
	_, err = m.deps.Agent.Run(ctx, p, agent.WithWorkDir(run.WorktreePath))
	return err
}

// Ship pushes the run's branch, opens a code review for it (or adopts an
// existing open one), notifies the issue, and advances to shipped.
// Shipping an already-shipped run returns the stored review.
func (m *Machine) Ship(ctx context.Context, runID string) (*provider.CodeReview, error) {
	run, err := m.deps.Store.Load(runID)
	if err != nil {
		return nil, err
	}
	if run.Phase == PhaseShipped {
		return run.Review, nil
	}
	if run.Phase != PhaseReviewed {
		return nil, fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, EventShip, run.Phase)
	}

	set, err := m.deps.Resolver.Providers(run.Issue)
	if err != nil {
		m.fail(ctx, run, fmt.Errorf("resolve providers: %w", err))
		return nil, err
	}

	if err := m.deps.Git.InWorktree(run.WorktreePath).Push("origin", run.Branch, true); err != nil {
		m.fail(ctx, run, fmt.Errorf("push branch %s: %w", run.Branch, err))
		return nil, err
	}

	review, err := set.Reviews.CheckExists(ctx, run.Branch)
	if err != nil {
		m.fail(ctx, run, fmt.Errorf("check existing review: %w", err))
		return nil, err
	}
	if review == nil {
		review, err = set.Reviews.Create(ctx, provider.CreateReviewOptions{
			Branch:       run.Branch,
			Title:        run.Issue.Title,
			Body:         fmt.Sprintf("Automated change for %s.", run.Issue.String()),
			Issue:        run.Issue,
			TargetBranch: m.targetBranch,
		})
		if err != nil {
			m.fail(ctx, run, fmt.Errorf("create review: %w", err))
			return nil, err
		}
		m.emit(ctx, notify.EventReviewCreated, run, "opened review "+review.URL, notify.SeverityInfo)
	} else {
		slog.Info("reusing open review", "run_id", run.ID, "review_url", review.URL)
	}
	run.Review = review

	m.notifyIssue(ctx, set, run, review)

	if err := run.advance(EventShip); err != nil {
		return nil, err
	}
	if err := m.deps.Store.Save(run); err != nil {
		return nil, err
	}
	m.emit(ctx, notify.EventRunShipped, run, "run shipped as "+review.URL, notify.SeverityInfo)
	return review, nil
}

// notifyIssue posts the review link on the issue once per agent identity.
// Notification failures never fail a ship.
func (m *Machine) notifyIssue(ctx context.Context, set provider.Set, run *Run, review *provider.CodeReview) {
	target := provider.TargetIssue(run.Issue)
	done, err := set.Notes.AlreadyNotified(ctx, target, m.agentID)
	if err != nil {
		slog.Warn("notification dedup check failed", "run_id", run.ID, "error", err)
		return
	}
	if done {
		return
	}
	msg := fmt.Sprintf("Opened %s for this issue.", review.URL)
	if err := set.Notes.Notify(ctx, target, msg, m.agentID); err != nil {
		slog.Warn("issue notification failed", "run_id", run.ID, "error", err)
	}
}

// Cancel aborts a run between phases. The run moves to failed and its
// sandbox is destroyed. Terminal runs cannot be cancelled.
func (m *Machine) Cancel(ctx context.Context, runID string) error {
	run, err := m.deps.Store.Load(runID)
	if err != nil {
		return err
	}
	if run.Phase.Terminal() {
		return fmt.Errorf("%w: %s in terminal phase %s", ErrInvalidTransition, EventCancel, run.Phase)
	}

	if err := run.advance(EventCancel); err != nil {
		return err
	}
	run.LastError = "cancelled"

	if err := m.deps.Sandboxes.Destroy(run.ID); err != nil {
		slog.Warn("sandbox teardown on cancel", "run_id", run.ID, "error", err)
	}
	if err := m.deps.Store.Save(run); err != nil {
		return err
	}
	m.emit(ctx, notify.EventRunCancelled, run, "run cancelled", notify.SeverityWarning)
	return nil
}

// Resume continues a run from its persisted phase through the remaining
// phases. A shipped run is a no-op; a failed run is an error.
func (m *Machine) Resume(ctx context.Context, runID string) error {
	for {
		run, err := m.deps.Store.Load(runID)
		if err != nil {
			return err
		}

		switch run.Phase {
		case PhasePlanned:
			if err := m.Build(ctx, runID); err != nil {
				return err
			}
		case PhaseBuilt, PhaseReviewing:
			if err := m.Review(ctx, runID); err != nil {
				return err
			}
		case PhaseReviewed:
			_, err := m.Ship(ctx, runID)
			return err
		case PhaseShipped:
			return nil
		case PhaseFailed:
			return fmt.Errorf("run %s already failed: %s", runID, run.LastError)
		default:
			return fmt.Errorf("run %s in unknown phase %s", runID, run.Phase)
		}
	}
}

// fail moves the run to failed, records the cause, and persists. It is
// best-effort; the original error is what callers return.
func (m *Machine) fail(ctx context.Context, run *Run, cause error) {
	if err := run.advance(EventFail); err != nil {
		return
	}
	run.LastError = cause.Error()
	if err := m.deps.Store.Save(run); err != nil {
		slog.Warn("persist failed run", "run_id", run.ID, "error", err)
	}
	m.emit(ctx, notify.EventRunFailed, run, cause.Error(), notify.SeverityError)
}

func (m *Machine) emit(ctx context.Context, typ notify.EventType, run *Run, message, severity string) {
	if m.events == nil {
		return
	}
	event := notify.Event{
		Type:      typ,
		RunID:     run.ID,
		Phase:     string(run.Phase),
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now().UTC(),
	}
	if run.Issue != nil {
		event.IssueRef = run.Issue.String()
	}
	if err := m.events.Notify(ctx, event); err != nil {
		slog.Warn("event delivery failed", "run_id", run.ID, "type", typ, "error", err)
	}
}
