package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xanzy/go-gitlab"

	sferrors "github.com/randalmurphal/shipflow/errors"
	"github.com/randalmurphal/shipflow/issue"
)

// GitLabProvider implements all three capabilities against one GitLab
// project, on gitlab.com or a self-hosted instance.
type GitLabProvider struct {
	client      *gitlab.Client
	projectPath string // "namespace/project", may include subgroups
	timeout     time.Duration
}

// NewGitLabProvider creates a provider for projectPath. baseURL points at a
// self-hosted instance; empty means gitlab.com. timeout bounds every API
// call; zero means no deadline.
func NewGitLabProvider(token, baseURL, projectPath string, timeout time.Duration) (*GitLabProvider, error) {
	if token == "" {
		return nil, &sferrors.AuthError{Platform: "gitlab", Err: fmt.Errorf("no token configured")}
	}
	if projectPath == "" {
		return nil, fmt.Errorf("GitLab project path is required")
	}

	var client *gitlab.Client
	var err error
	if baseURL != "" {
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	} else {
		client, err = gitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabProvider{
		client:      client,
		projectPath: projectPath,
		timeout:     timeout,
	}, nil
}

// GetIssue implements IssueProvider.
func (p *GitLabProvider) GetIssue(ctx context.Context, localID string) (*issue.Issue, error) {
	iid, err := strconv.Atoi(localID)
	if err != nil {
		return nil, &sferrors.ResolutionError{
			Ref:    localID,
			Reason: "GitLab issue IDs are numeric",
		}
	}

	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	glIssue, resp, err := p.client.Issues.GetIssue(p.projectPath, iid, gitlab.WithContext(ctx))
	if err != nil {
		return nil, sferrors.ClassifyAPIError("gitlab", "get issue", glStatusCode(resp), err)
	}

	return &issue.Issue{
		ID:          strconv.Itoa(glIssue.IID),
		Source:      issue.SourceGitLab,
		ProjectPath: p.projectPath,
		Title:       glIssue.Title,
		Description: glIssue.Description,
		Labels:      glIssue.Labels,
	}, nil
}

// CheckExists implements ReviewProvider.
func (p *GitLabProvider) CheckExists(ctx context.Context, branch string) (*CodeReview, error) {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	mrs, resp, err := p.client.MergeRequests.ListProjectMergeRequests(p.projectPath,
		&gitlab.ListProjectMergeRequestsOptions{
			SourceBranch: gitlab.Ptr(branch),
			State:        gitlab.Ptr("opened"),
		}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, sferrors.ClassifyAPIError("gitlab", "check review exists", glStatusCode(resp), err)
	}
	if len(mrs) == 0 {
		return nil, nil
	}
	return reviewFromMR(mrs[0]), nil
}

// Create implements ReviewProvider.
func (p *GitLabProvider) Create(ctx context.Context, opts CreateReviewOptions) (*CodeReview, error) {
	existing, err := p.CheckExists(ctx, opts.Branch)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &sferrors.ConflictError{
			Op:     "create review",
			Detail: fmt.Sprintf("open review !%d already exists for branch %s", existing.ID, opts.Branch),
		}
	}

	target := opts.TargetBranch
	if target == "" {
		target = "main"
	}

	cctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	mr, resp, err := p.client.MergeRequests.CreateMergeRequest(p.projectPath,
		&gitlab.CreateMergeRequestOptions{
			Title:        gitlab.Ptr(opts.Title),
			Description:  gitlab.Ptr(reviewBody(opts.Body, opts.Issue)),
			SourceBranch: gitlab.Ptr(opts.Branch),
			TargetBranch: gitlab.Ptr(target),
		}, gitlab.WithContext(cctx))
	if err != nil {
		return nil, sferrors.ClassifyAPIError("gitlab", "create review", glStatusCode(resp), err)
	}
	return reviewFromMR(mr), nil
}

// Approve implements ReviewProvider.
func (p *GitLabProvider) Approve(ctx context.Context, id int, message string) error {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	_, resp, err := p.client.MergeRequestApprovals.ApproveMergeRequest(p.projectPath, id,
		&gitlab.ApproveMergeRequestOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return sferrors.ClassifyAPIError("gitlab", "approve review", glStatusCode(resp), err)
	}

	if message != "" {
		if err := p.note(ctx, id, message); err != nil {
			// The approval itself succeeded.
			slog.Warn("failed to post approval note", "error", err, "mr", id)
		}
	}
	return nil
}

// Merge implements ReviewProvider. The GitLab accept API has no rebase-merge
// mode; MergeMethodRebase falls back to a plain merge.
func (p *GitLabProvider) Merge(ctx context.Context, id int, method MergeMethod, message string) error {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	acceptOpts := &gitlab.AcceptMergeRequestOptions{}
	if message != "" {
		acceptOpts.MergeCommitMessage = gitlab.Ptr(message)
	}
	if method == MergeMethodSquash {
		acceptOpts.Squash = gitlab.Ptr(true)
		if message != "" {
			acceptOpts.SquashCommitMessage = gitlab.Ptr(message)
		}
	}

	_, resp, err := p.client.MergeRequests.AcceptMergeRequest(p.projectPath, id, acceptOpts,
		gitlab.WithContext(ctx))
	if err != nil {
		return sferrors.ClassifyAPIError("gitlab", "merge review", glStatusCode(resp), err)
	}
	return nil
}

// GetStatus implements ReviewProvider.
func (p *GitLabProvider) GetStatus(ctx context.Context, id int) (ReviewStatus, error) {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	mr, resp, err := p.client.MergeRequests.GetMergeRequest(p.projectPath, id, nil,
		gitlab.WithContext(ctx))
	if err != nil {
		return "", sferrors.ClassifyAPIError("gitlab", "get review status", glStatusCode(resp), err)
	}

	switch mr.State {
	case "merged":
		return ReviewMerged, nil
	case "closed":
		return ReviewClosed, nil
	}
	if mr.HasConflicts {
		return ReviewConflict, nil
	}

	approvals, _, err := p.client.MergeRequestApprovals.GetConfiguration(p.projectPath, id,
		gitlab.WithContext(ctx))
	if err != nil {
		slog.Warn("failed to read approval state", "error", err, "mr", id)
		return ReviewOpen, nil
	}
	if len(approvals.ApprovedBy) > 0 {
		return ReviewApproved, nil
	}
	return ReviewOpen, nil
}

// Notify implements Notifier. GitLab calls these notes.
func (p *GitLabProvider) Notify(ctx context.Context, target Target, message, agentID string) error {
	body := markMessage(message, agentID)

	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	switch {
	case target.Issue != nil:
		iid, err := strconv.Atoi(target.Issue.ID)
		if err != nil {
			return fmt.Errorf("non-numeric GitLab issue ID %q", target.Issue.ID)
		}
		_, resp, err := p.client.Notes.CreateIssueNote(p.projectPath, iid,
			&gitlab.CreateIssueNoteOptions{Body: gitlab.Ptr(body)}, gitlab.WithContext(ctx))
		if err != nil {
			return sferrors.ClassifyAPIError("gitlab", "post note", glStatusCode(resp), err)
		}
		return nil

	case target.Review != nil:
		return p.note(ctx, target.Review.ID, body)
	}
	return fmt.Errorf("empty notification target")
}

// AlreadyNotified implements Notifier.
func (p *GitLabProvider) AlreadyNotified(ctx context.Context, target Target, agentID string) (bool, error) {
	marker := BotMarker(agentID)

	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	var bodies []string
	switch {
	case target.Issue != nil:
		iid, err := strconv.Atoi(target.Issue.ID)
		if err != nil {
			return false, fmt.Errorf("non-numeric GitLab issue ID %q", target.Issue.ID)
		}
		notes, resp, err := p.client.Notes.ListIssueNotes(p.projectPath, iid, nil,
			gitlab.WithContext(ctx))
		if err != nil {
			return false, sferrors.ClassifyAPIError("gitlab", "list notes", glStatusCode(resp), err)
		}
		for _, n := range notes {
			bodies = append(bodies, n.Body)
		}

	case target.Review != nil:
		notes, resp, err := p.client.Notes.ListMergeRequestNotes(p.projectPath, target.Review.ID, nil,
			gitlab.WithContext(ctx))
		if err != nil {
			return false, sferrors.ClassifyAPIError("gitlab", "list notes", glStatusCode(resp), err)
		}
		for _, n := range notes {
			bodies = append(bodies, n.Body)
		}

	default:
		return false, fmt.Errorf("empty notification target")
	}

	for _, body := range bodies {
		if strings.Contains(body, marker) {
			return true, nil
		}
	}
	return false, nil
}

// note posts a merge request note. Unexported so callers go through Notify.
func (p *GitLabProvider) note(ctx context.Context, mrIID int, body string) error {
	_, resp, err := p.client.Notes.CreateMergeRequestNote(p.projectPath, mrIID,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(body)}, gitlab.WithContext(ctx))
	if err != nil {
		return sferrors.ClassifyAPIError("gitlab", "post note", glStatusCode(resp), err)
	}
	return nil
}

func reviewFromMR(mr *gitlab.MergeRequest) *CodeReview {
	review := &CodeReview{
		ID:           mr.IID,
		URL:          mr.WebURL,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		Status:       ReviewOpen,
	}
	switch mr.State {
	case "merged":
		review.Status = ReviewMerged
	case "closed":
		review.Status = ReviewClosed
	default:
		if mr.HasConflicts {
			review.Status = ReviewConflict
		}
	}
	return review
}

func glStatusCode(resp *gitlab.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
