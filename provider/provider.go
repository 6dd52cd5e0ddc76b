package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/shipflow/issue"
)

// ReviewStatus is the lifecycle state of a code review.
type ReviewStatus string

const (
	ReviewOpen     ReviewStatus = "open"
	ReviewApproved ReviewStatus = "approved"
	ReviewMerged   ReviewStatus = "merged"
	ReviewClosed   ReviewStatus = "closed"
	ReviewConflict ReviewStatus = "conflict"
)

// CodeReview represents a platform-native review request (pull request on
// GitHub, merge request on GitLab). At most one open review exists per
// source branch; CheckExists enforces this before Create.
type CodeReview struct {
	ID           int          `json:"id"`
	URL          string       `json:"url"`
	SourceBranch string       `json:"sourceBranch"`
	TargetBranch string       `json:"targetBranch"`
	Status       ReviewStatus `json:"status"`
}

// MergeMethod specifies how a review is merged.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// CreateReviewOptions configures review creation.
type CreateReviewOptions struct {
	Branch       string       // Source branch (required)
	Title        string       // Review title (required)
	Body         string       // Description; the issue auto-close line is appended
	Issue        *issue.Issue // Issue the review resolves
	TargetBranch string       // Defaults to "main"
}

// IssueProvider fetches issues from a single source.
type IssueProvider interface {
	// GetIssue fetches the issue identified by localID. The provider is
	// already bound to a project; localID is the platform-native ID.
	GetIssue(ctx context.Context, localID string) (*issue.Issue, error)
}

// ReviewProvider manages code reviews for a single project. The contract is
// identical across platforms; callers never branch on the platform.
type ReviewProvider interface {
	// CheckExists returns the open review for the branch, or nil when there
	// is none. Callers must call this before Create.
	CheckExists(ctx context.Context, branch string) (*CodeReview, error)

	// Create opens a new review. The body embeds the platform's auto-close
	// syntax for opts.Issue. Returns ConflictError if an open review for
	// the branch already exists.
	Create(ctx context.Context, opts CreateReviewOptions) (*CodeReview, error)

	// Approve approves the review with an optional message.
	Approve(ctx context.Context, id int, message string) error

	// Merge merges the review. An unmergeable review surfaces ConflictError;
	// it is never retried automatically.
	Merge(ctx context.Context, id int, method MergeMethod, message string) error

	// GetStatus returns the review's current status.
	GetStatus(ctx context.Context, id int) (ReviewStatus, error)
}

// Target addresses a notification at either an issue or a code review.
// Exactly one field is set.
type Target struct {
	Issue  *issue.Issue
	Review *CodeReview
}

// TargetIssue wraps an issue as a notification target.
func TargetIssue(i *issue.Issue) Target { return Target{Issue: i} }

// TargetReview wraps a code review as a notification target.
func TargetReview(r *CodeReview) Target { return Target{Review: r} }

func (t Target) String() string {
	switch {
	case t.Issue != nil:
		return t.Issue.String()
	case t.Review != nil:
		return fmt.Sprintf("review #%d", t.Review.ID)
	}
	return "empty target"
}

// Notifier posts agent-authored status messages to an issue or review.
// GitHub calls these comments and GitLab calls them notes; the contract is
// the same and callers never reach for a platform-specific function.
type Notifier interface {
	// Notify posts message to the target, prefixed with the bot marker for
	// agentID so later scans can tell agent comments from human ones.
	Notify(ctx context.Context, target Target, message, agentID string) error

	// AlreadyNotified reports whether an agent comment carrying the marker
	// for agentID already exists on the target.
	AlreadyNotified(ctx context.Context, target Target, agentID string) (bool, error)
}

// Set bundles the three capabilities for one issue source. The mapping from
// source to Set is a pure function of process-lifetime configuration.
type Set struct {
	Source  issue.Source
	Issues  IssueProvider
	Reviews ReviewProvider
	Notes   Notifier
}

// BotMarker returns the stable token prefixed to every agent-authored
// message for the given agent identity.
func BotMarker(agentID string) string {
	return "[shipflow-agent:" + agentID + "]"
}

// markMessage prefixes message with the bot marker unless already present.
func markMessage(message, agentID string) string {
	marker := BotMarker(agentID)
	if strings.HasPrefix(message, marker) {
		return message
	}
	return marker + " " + message
}

// callCtx derives a deadline-bounded context for one provider call.
func callCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// autoCloseLine returns the platform auto-close reference for an issue.
// Both GitHub and GitLab understand "Closes #<id>".
func autoCloseLine(iss *issue.Issue) string {
	if iss == nil || iss.ID == "" {
		return ""
	}
	return "Closes #" + iss.ID
}

// reviewBody appends the auto-close line to a review description.
func reviewBody(body string, iss *issue.Issue) string {
	line := autoCloseLine(iss)
	if line == "" {
		return body
	}
	if body == "" {
		return line
	}
	return body + "\n\n" + line
}
