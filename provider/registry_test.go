package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/randalmurphal/shipflow/config"
	sferrors "github.com/randalmurphal/shipflow/errors"
	"github.com/randalmurphal/shipflow/git"
	"github.com/randalmurphal/shipflow/issue"
)

// fakeRepo builds a git context whose primary remote is scripted.
func fakeRepo(t *testing.T, originURL string) *git.Context {
	t.Helper()
	runner := git.NewMockRunner()
	if originURL != "" {
		runner.Responses["remote -v"] = "origin\t" + originURL + " (fetch)\norigin\t" + originURL + " (push)"
		runner.Responses["remote get-url origin"] = originURL
	}
	ctx, err := git.NewContext(t.TempDir(), git.WithRunner(runner))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

// recordingFactory returns a provider factory that records every requested
// source/project pair and serves mocks.
func recordingFactory(requests *[]string) func(src issue.Source, projectPath string) (Set, error) {
	return func(src issue.Source, projectPath string) (Set, error) {
		*requests = append(*requests, string(src)+"|"+projectPath)
		return Set{
			Source: src,
			Issues: &MockIssueProvider{GetIssueFunc: func(ctx context.Context, localID string) (*issue.Issue, error) {
				return &issue.Issue{ID: localID, Source: src, ProjectPath: projectPath, Title: "stub"}, nil
			}},
			Reviews: &MockReviewProvider{},
			Notes:   &MockNotifier{},
		}, nil
	}
}

func TestResolve_BareIDUsesDetectedPlatform(t *testing.T) {
	var requests []string
	reg := NewRegistry(config.Default(), fakeRepo(t, "https://github.com/org/repo.git"), nil,
		WithProviderFactory(recordingFactory(&requests)))

	iss, err := reg.Resolve(context.Background(), "42")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if iss.Source != issue.SourceGitHub {
		t.Errorf("Source = %v, want github", iss.Source)
	}
	if iss.ProjectPath != "org/repo" {
		t.Errorf("ProjectPath = %q, want org/repo", iss.ProjectPath)
	}
	if len(requests) != 1 || requests[0] != "github|org/repo" {
		t.Errorf("factory requests = %v", requests)
	}
}

func TestResolve_SimpleSourceMismatchFails(t *testing.T) {
	var requests []string
	reg := NewRegistry(config.Default(), fakeRepo(t, "https://gitlab.com/group/app.git"), nil,
		WithProviderFactory(recordingFactory(&requests)))

	_, err := reg.Resolve(context.Background(), "github:42")
	if !errors.Is(err, sferrors.ErrResolution) {
		t.Fatalf("Resolve error = %v, want ErrResolution", err)
	}
	if !strings.Contains(err.Error(), "extended form") {
		t.Errorf("error should point at the extended form, got: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("no provider should be constructed on mismatch, got %v", requests)
	}
}

// The routing invariant: an extended GitHub reference resolved inside a
// GitLab-hosted repository must route to GitHub, at resolution time and on
// every later provider lookup.
func TestResolve_ExtendedRefIgnoresAmbientPlatform(t *testing.T) {
	var requests []string
	reg := NewRegistry(config.Default(), fakeRepo(t, "https://gitlab.com/group/app.git"), nil,
		WithProviderFactory(recordingFactory(&requests)))

	iss, err := reg.Resolve(context.Background(), "github:other/project:7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if iss.Source != issue.SourceGitHub {
		t.Errorf("Source = %v, want github", iss.Source)
	}
	if iss.ProjectPath != "other/project" {
		t.Errorf("ProjectPath = %q, want other/project", iss.ProjectPath)
	}

	set, err := reg.Providers(iss)
	if err != nil {
		t.Fatalf("Providers: %v", err)
	}
	if set.Source != issue.SourceGitHub {
		t.Errorf("Providers source = %v, want github", set.Source)
	}

	notifier := set.Notes.(*MockNotifier)
	if err := set.Notes.Notify(context.Background(), TargetIssue(iss), "shipping", "agent-1"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(notifier.Sent) != 1 {
		t.Fatalf("notification went to the wrong provider set")
	}
	for _, req := range requests {
		if strings.HasPrefix(req, "gitlab|") {
			t.Errorf("ambient gitlab provider was constructed: %v", requests)
		}
	}
}

func TestResolve_UnknownPlatformNeedsPrefix(t *testing.T) {
	var requests []string
	reg := NewRegistry(config.Default(), fakeRepo(t, "https://example.com/org/repo.git"), nil,
		WithProviderFactory(recordingFactory(&requests)))

	_, err := reg.Resolve(context.Background(), "42")
	if !errors.Is(err, sferrors.ErrResolution) {
		t.Fatalf("Resolve error = %v, want ErrResolution", err)
	}
	if !strings.Contains(err.Error(), "Prefix the reference") {
		t.Errorf("error should instruct to add a source prefix, got: %v", err)
	}
}

func TestResolve_PromptTextWithColons(t *testing.T) {
	var requests []string
	var gotID string
	factory := func(src issue.Source, projectPath string) (Set, error) {
		requests = append(requests, string(src))
		return Set{
			Source: src,
			Issues: &MockIssueProvider{GetIssueFunc: func(ctx context.Context, localID string) (*issue.Issue, error) {
				gotID = localID
				return &issue.Issue{ID: "p1", Source: src, Title: "stub"}, nil
			}},
		}, nil
	}

	reg := NewRegistry(config.Default(), fakeRepo(t, ""), nil, WithProviderFactory(factory))

	iss, err := reg.Resolve(context.Background(), "prompt:fix the parser: it drops colons")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if iss.Source != issue.SourcePrompt {
		t.Errorf("Source = %v, want prompt", iss.Source)
	}
	if gotID != "fix the parser: it drops colons" {
		t.Errorf("prompt text = %q, colons after the source must survive", gotID)
	}
}

func TestProviders_PureLookup(t *testing.T) {
	var requests []string
	reg := NewRegistry(config.Default(), fakeRepo(t, "https://gitlab.com/group/app.git"), nil,
		WithProviderFactory(recordingFactory(&requests)))

	iss := &issue.Issue{ID: "9", Source: issue.SourceGitHub, ProjectPath: "org/repo"}
	set, err := reg.Providers(iss)
	if err != nil {
		t.Fatalf("Providers: %v", err)
	}
	if set.Source != issue.SourceGitHub {
		t.Errorf("set source = %v, want the issue's own source", set.Source)
	}

	if _, err := reg.Providers(&issue.Issue{ID: "x"}); err == nil {
		t.Error("Providers should reject an issue without a valid source")
	}
}

func TestBotMarker(t *testing.T) {
	marker := BotMarker("agent-7")
	if marker != "[shipflow-agent:agent-7]" {
		t.Errorf("BotMarker = %q", marker)
	}

	marked := markMessage("hello", "agent-7")
	if !strings.HasPrefix(marked, marker) {
		t.Errorf("markMessage = %q, want %q prefix", marked, marker)
	}
	// Idempotent.
	if markMessage(marked, "agent-7") != marked {
		t.Error("markMessage should not double-prefix")
	}
}

func TestReviewBody_AutoClose(t *testing.T) {
	iss := &issue.Issue{ID: "42", Source: issue.SourceGitHub}
	body := reviewBody("Implements the thing.", iss)
	if !strings.HasSuffix(body, "Closes #42") {
		t.Errorf("body = %q, want Closes #42 suffix", body)
	}
	if reviewBody("", iss) != "Closes #42" {
		t.Errorf("empty body should become the auto-close line alone")
	}
}
