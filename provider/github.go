package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	sferrors "github.com/randalmurphal/shipflow/errors"
	"github.com/randalmurphal/shipflow/issue"
)

// GitHubProvider implements all three capabilities against one GitHub
// repository. Construct one per project path.
type GitHubProvider struct {
	client  *github.Client
	owner   string
	repo    string
	timeout time.Duration
}

// NewGitHubProvider creates a provider for projectPath ("owner/repo").
// token is a personal access token or an App installation token. timeout
// bounds every API call; zero means no deadline.
func NewGitHubProvider(token, projectPath string, timeout time.Duration) (*GitHubProvider, error) {
	if token == "" {
		return nil, &sferrors.AuthError{Platform: "github", Err: fmt.Errorf("no token configured")}
	}
	owner, repo, ok := strings.Cut(projectPath, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid GitHub project path %q, want owner/repo", projectPath)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &GitHubProvider{
		client:  github.NewClient(tc),
		owner:   owner,
		repo:    repo,
		timeout: timeout,
	}, nil
}

// GetIssue implements IssueProvider.
func (p *GitHubProvider) GetIssue(ctx context.Context, localID string) (*issue.Issue, error) {
	number, err := strconv.Atoi(localID)
	if err != nil {
		return nil, &sferrors.ResolutionError{
			Ref:    localID,
			Reason: "GitHub issue IDs are numeric",
		}
	}

	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	ghIssue, resp, err := p.client.Issues.Get(ctx, p.owner, p.repo, number)
	if err != nil {
		return nil, sferrors.ClassifyAPIError("github", "get issue", statusCode(resp), err)
	}

	result := &issue.Issue{
		ID:          strconv.Itoa(ghIssue.GetNumber()),
		Source:      issue.SourceGitHub,
		ProjectPath: p.owner + "/" + p.repo,
		Title:       ghIssue.GetTitle(),
		Description: ghIssue.GetBody(),
	}
	for _, label := range ghIssue.Labels {
		result.Labels = append(result.Labels, label.GetName())
	}
	return result, nil
}

// CheckExists implements ReviewProvider.
func (p *GitHubProvider) CheckExists(ctx context.Context, branch string) (*CodeReview, error) {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	prs, resp, err := p.client.PullRequests.List(ctx, p.owner, p.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  p.owner + ":" + branch,
	})
	if err != nil {
		return nil, sferrors.ClassifyAPIError("github", "check review exists", statusCode(resp), err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return p.reviewFromPR(prs[0]), nil
}

// Create implements ReviewProvider.
func (p *GitHubProvider) Create(ctx context.Context, opts CreateReviewOptions) (*CodeReview, error) {
	existing, err := p.CheckExists(ctx, opts.Branch)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &sferrors.ConflictError{
			Op:     "create review",
			Detail: fmt.Sprintf("open review #%d already exists for branch %s", existing.ID, opts.Branch),
		}
	}

	target := opts.TargetBranch
	if target == "" {
		target = "main"
	}

	cctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	pr, resp, err := p.client.PullRequests.Create(cctx, p.owner, p.repo, &github.NewPullRequest{
		Title: github.String(opts.Title),
		Body:  github.String(reviewBody(opts.Body, opts.Issue)),
		Head:  github.String(opts.Branch),
		Base:  github.String(target),
	})
	if err != nil {
		if strings.Contains(err.Error(), "A pull request already exists") {
			return nil, &sferrors.ConflictError{Op: "create review", Detail: err.Error()}
		}
		return nil, sferrors.ClassifyAPIError("github", "create review", statusCode(resp), err)
	}
	return p.reviewFromPR(pr), nil
}

// Approve implements ReviewProvider.
func (p *GitHubProvider) Approve(ctx context.Context, id int, message string) error {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	_, resp, err := p.client.PullRequests.CreateReview(ctx, p.owner, p.repo, id,
		&github.PullRequestReviewRequest{
			Body:  github.String(message),
			Event: github.String("APPROVE"),
		})
	if err != nil {
		return sferrors.ClassifyAPIError("github", "approve review", statusCode(resp), err)
	}
	return nil
}

// Merge implements ReviewProvider.
func (p *GitHubProvider) Merge(ctx context.Context, id int, method MergeMethod, message string) error {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	mergeOpts := &github.PullRequestOptions{}
	switch method {
	case MergeMethodSquash:
		mergeOpts.MergeMethod = "squash"
	case MergeMethodRebase:
		mergeOpts.MergeMethod = "rebase"
	default:
		mergeOpts.MergeMethod = "merge"
	}

	_, resp, err := p.client.PullRequests.Merge(ctx, p.owner, p.repo, id, message, mergeOpts)
	if err != nil {
		return sferrors.ClassifyAPIError("github", "merge review", statusCode(resp), err)
	}
	return nil
}

// GetStatus implements ReviewProvider.
func (p *GitHubProvider) GetStatus(ctx context.Context, id int) (ReviewStatus, error) {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	pr, resp, err := p.client.PullRequests.Get(ctx, p.owner, p.repo, id)
	if err != nil {
		return "", sferrors.ClassifyAPIError("github", "get review status", statusCode(resp), err)
	}

	switch pr.GetState() {
	case "closed":
		if pr.GetMerged() {
			return ReviewMerged, nil
		}
		return ReviewClosed, nil
	}

	if pr.GetMergeableState() == "dirty" {
		return ReviewConflict, nil
	}

	reviews, resp, err := p.client.PullRequests.ListReviews(ctx, p.owner, p.repo, id, nil)
	if err != nil {
		// Approval state is secondary; report open rather than failing.
		slog.Warn("failed to list reviews for approval state", "error", err, "pr", id)
		_ = resp
		return ReviewOpen, nil
	}
	for _, r := range reviews {
		if r.GetState() == "APPROVED" {
			return ReviewApproved, nil
		}
	}
	return ReviewOpen, nil
}

// Notify implements Notifier.
func (p *GitHubProvider) Notify(ctx context.Context, target Target, message, agentID string) error {
	number, err := p.targetNumber(target)
	if err != nil {
		return err
	}
	return p.comment(ctx, number, markMessage(message, agentID))
}

// AlreadyNotified implements Notifier.
func (p *GitHubProvider) AlreadyNotified(ctx context.Context, target Target, agentID string) (bool, error) {
	number, err := p.targetNumber(target)
	if err != nil {
		return false, err
	}

	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	comments, resp, err := p.client.Issues.ListComments(ctx, p.owner, p.repo, number, nil)
	if err != nil {
		return false, sferrors.ClassifyAPIError("github", "list comments", statusCode(resp), err)
	}
	marker := BotMarker(agentID)
	for _, c := range comments {
		if strings.Contains(c.GetBody(), marker) {
			return true, nil
		}
	}
	return false, nil
}

// comment posts an issue comment. Unexported so callers must go through
// Notify and cannot bypass the bot marker.
func (p *GitHubProvider) comment(ctx context.Context, number int, body string) error {
	ctx, cancel := callCtx(ctx, p.timeout)
	defer cancel()

	_, resp, err := p.client.Issues.CreateComment(ctx, p.owner, p.repo, number,
		&github.IssueComment{Body: github.String(body)})
	if err != nil {
		return sferrors.ClassifyAPIError("github", "post comment", statusCode(resp), err)
	}
	return nil
}

// targetNumber maps a notification target to the issue/PR number it lives
// on. GitHub shares one comment namespace between issues and PRs.
func (p *GitHubProvider) targetNumber(target Target) (int, error) {
	switch {
	case target.Issue != nil:
		n, err := strconv.Atoi(target.Issue.ID)
		if err != nil {
			return 0, fmt.Errorf("non-numeric GitHub issue ID %q", target.Issue.ID)
		}
		return n, nil
	case target.Review != nil:
		return target.Review.ID, nil
	}
	return 0, fmt.Errorf("empty notification target")
}

func (p *GitHubProvider) reviewFromPR(pr *github.PullRequest) *CodeReview {
	review := &CodeReview{
		ID:     pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Status: ReviewOpen,
	}
	if pr.Head != nil {
		review.SourceBranch = pr.Head.GetRef()
	}
	if pr.Base != nil {
		review.TargetBranch = pr.Base.GetRef()
	}
	switch pr.GetState() {
	case "closed":
		if pr.GetMerged() {
			review.Status = ReviewMerged
		} else {
			review.Status = ReviewClosed
		}
	default:
		if pr.GetMergeableState() == "dirty" {
			review.Status = ReviewConflict
		}
	}
	return review
}

func statusCode(resp *github.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
