package provider

import (
	"context"
	"fmt"

	"github.com/randalmurphal/shipflow/config"
	sferrors "github.com/randalmurphal/shipflow/errors"
	"github.com/randalmurphal/shipflow/git"
	"github.com/randalmurphal/shipflow/issue"
	"github.com/randalmurphal/shipflow/issuedb"
)

// Registry resolves issue references and hands out capability sets.
// Routing derives from the issue's source alone, fixed at resolution time;
// the ambient repository platform is consulted only to fill in an omitted
// source or project path.
type Registry struct {
	cfg    config.Config
	git    *git.Context
	db     *issuedb.DB
	prompt *PromptProvider

	// newSet builds the capability set for a source+project pair. Tests
	// substitute it to avoid real API clients.
	newSet func(src issue.Source, projectPath string) (Set, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithProviderFactory overrides capability-set construction, primarily for
// tests.
func WithProviderFactory(f func(src issue.Source, projectPath string) (Set, error)) RegistryOption {
	return func(r *Registry) {
		r.newSet = f
	}
}

// NewRegistry creates a registry. gitCtx identifies the current repository
// for platform detection; db backs the local source and may be nil when
// local issues are unused.
func NewRegistry(cfg config.Config, gitCtx *git.Context, db *issuedb.DB, opts ...RegistryOption) *Registry {
	r := &Registry{
		cfg:    cfg,
		git:    gitCtx,
		db:     db,
		prompt: NewPromptProvider(),
	}
	r.newSet = r.buildSet
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve parses a reference, routes it to the right source, and fetches
// the issue. A simple reference whose explicit source contradicts the
// current repository's detected platform fails with a corrective
// ResolutionError rather than silently fetching from the wrong project.
func (r *Registry) Resolve(ctx context.Context, raw string) (*issue.Issue, error) {
	ref, err := issue.ParseRef(raw)
	if err != nil {
		return nil, err
	}

	src := ref.Source
	if src == "" {
		detected, ok := r.detect().Source()
		if !ok {
			return nil, &sferrors.ResolutionError{
				Ref:        raw,
				Reason:     "no source given and the current repository's platform is unknown",
				Suggestion: "Prefix the reference with its source, e.g. github:" + ref.LocalID + " or local:" + ref.LocalID + ".",
			}
		}
		src = detected
	}

	projectPath := ref.ProjectPath
	if src.Remote() && !ref.Extended() {
		// Simple form: the local ID resolves against the current repo, so
		// its stated source must match the detected platform.
		detected, ok := r.detect().Source()
		if ok && detected != src {
			return nil, &sferrors.ResolutionError{
				Ref:    raw,
				Reason: fmt.Sprintf("reference names %s but the current repository is hosted on %s", src, detected),
				Suggestion: fmt.Sprintf("Use the extended form to address another project: %s:<namespace/project>:%s",
					src, ref.LocalID),
			}
		}

		projectPath, err = r.currentProjectPath()
		if err != nil {
			return nil, &sferrors.ResolutionError{
				Ref:        raw,
				Reason:     "cannot determine the current repository's project path: " + err.Error(),
				Suggestion: fmt.Sprintf("Use the extended form: %s:<namespace/project>:%s", src, ref.LocalID),
			}
		}
	}

	set, err := r.newSet(src, projectPath)
	if err != nil {
		return nil, err
	}

	iss, err := set.Issues.GetIssue(ctx, ref.LocalID)
	if err != nil {
		return nil, err
	}
	iss.Source = src
	if iss.ProjectPath == "" {
		iss.ProjectPath = projectPath
	}
	return iss, nil
}

// Providers returns the capability set for an already-resolved issue. A
// pure lookup from issue.Source plus process-lifetime configuration; the
// ambient repository is never re-consulted for remote sources.
func (r *Registry) Providers(iss *issue.Issue) (Set, error) {
	if iss == nil || !iss.Source.Valid() {
		return Set{}, fmt.Errorf("issue has no valid source")
	}
	return r.newSet(iss.Source, iss.ProjectPath)
}

func (r *Registry) detect() Platform {
	if r.git == nil {
		return PlatformUnknown
	}
	remotes, err := r.git.Remotes()
	if err != nil {
		return PlatformUnknown
	}
	return DetectPlatform(remotes, r.cfg.GitLabHosts)
}

func (r *Registry) currentProjectPath() (string, error) {
	if r.git == nil {
		return "", fmt.Errorf("no repository context")
	}
	url, err := r.git.RemoteURL(PrimaryRemote)
	if err != nil {
		return "", err
	}
	return ParseProjectPath(url)
}

// buildSet is the default capability-set constructor.
func (r *Registry) buildSet(src issue.Source, projectPath string) (Set, error) {
	switch src {
	case issue.SourceGitHub:
		p, err := r.newGitHub(projectPath)
		if err != nil {
			return Set{}, err
		}
		return Set{Source: src, Issues: p, Reviews: p, Notes: p}, nil

	case issue.SourceGitLab:
		p, err := NewGitLabProvider(r.cfg.GitLabToken, r.cfg.GitLabBaseURL, projectPath, r.cfg.GitLabTimeout)
		if err != nil {
			return Set{}, err
		}
		return Set{Source: src, Issues: p, Reviews: p, Notes: p}, nil

	case issue.SourceLocal:
		if r.db == nil {
			return Set{}, fmt.Errorf("local issue store not configured")
		}
		p := NewLocalProvider(r.db)
		return Set{Source: src, Issues: p, Reviews: r.repoReviews(src), Notes: p}, nil

	case issue.SourcePrompt:
		return Set{Source: src, Issues: r.prompt, Reviews: r.repoReviews(src), Notes: r.prompt}, nil
	}
	return Set{}, fmt.Errorf("unknown issue source %q", src)
}

// newGitHub constructs the GitHub provider from whichever credential is
// configured. App credentials take precedence over a personal token.
func (r *Registry) newGitHub(projectPath string) (*GitHubProvider, error) {
	if r.cfg.GitHubAppID != "" {
		return NewGitHubAppProvider(r.cfg.GitHubAppID, r.cfg.GitHubAppKeyPath, projectPath, r.cfg.GitHubTimeout)
	}
	return NewGitHubProvider(r.cfg.GitHubToken, projectPath, r.cfg.GitHubTimeout)
}

// repoReviews returns a review provider for the current repository's
// platform. Local and prompt issues have no hosting platform of their own,
// but their runs still ship reviews against the repo they modify.
func (r *Registry) repoReviews(src issue.Source) ReviewProvider {
	detected, ok := r.detect().Source()
	if !ok {
		return unsupportedReviews{source: src}
	}
	projectPath, err := r.currentProjectPath()
	if err != nil {
		return unsupportedReviews{source: src}
	}
	set, err := r.newSet(detected, projectPath)
	if err != nil {
		return unsupportedReviews{source: src}
	}
	return set.Reviews
}

// unsupportedReviews rejects review operations for sources whose repository
// has no detectable hosting platform.
type unsupportedReviews struct {
	source issue.Source
}

func (u unsupportedReviews) err(op string) error {
	return fmt.Errorf("%s: %s issues have no review platform (no github/gitlab primary remote detected)",
		op, u.source)
}

func (u unsupportedReviews) CheckExists(context.Context, string) (*CodeReview, error) {
	return nil, u.err("check review exists")
}

func (u unsupportedReviews) Create(context.Context, CreateReviewOptions) (*CodeReview, error) {
	return nil, u.err("create review")
}

func (u unsupportedReviews) Approve(context.Context, int, string) error {
	return u.err("approve review")
}

func (u unsupportedReviews) Merge(context.Context, int, MergeMethod, string) error {
	return u.err("merge review")
}

func (u unsupportedReviews) GetStatus(context.Context, int) (ReviewStatus, error) {
	return "", u.err("get review status")
}
