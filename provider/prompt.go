package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	sferrors "github.com/randalmurphal/shipflow/errors"
	"github.com/randalmurphal/shipflow/issue"
)

// promptTitleLimit caps the synthesized title length.
const promptTitleLimit = 72

// PromptProvider synthesizes a single-use issue from free text. The "issue"
// exists only for the lifetime of the run; notifications are logged since
// there is no durable location to post them.
type PromptProvider struct {
	mu       sync.Mutex
	notified map[string]bool // issueID -> agent already notified
}

// NewPromptProvider creates a prompt-source provider.
func NewPromptProvider() *PromptProvider {
	return &PromptProvider{notified: make(map[string]bool)}
}

// GetIssue implements IssueProvider. localID is the free prompt text; the
// title is derived from its first line and title-cased.
func (p *PromptProvider) GetIssue(ctx context.Context, localID string) (*issue.Issue, error) {
	text := strings.TrimSpace(localID)
	if text == "" {
		return nil, &sferrors.ResolutionError{
			Ref:    localID,
			Reason: "prompt text is empty",
		}
	}

	id, err := nanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate prompt issue ID: %w", err)
	}

	return &issue.Issue{
		ID:          id,
		Source:      issue.SourcePrompt,
		Title:       promptTitle(text),
		Description: text,
	}, nil
}

// Notify implements Notifier. Prompt issues have no durable home, so the
// message goes to the structured log.
func (p *PromptProvider) Notify(ctx context.Context, target Target, message, agentID string) error {
	slog.Info("prompt issue notification",
		"target", target.String(),
		"agent", agentID,
		"message", markMessage(message, agentID))

	if target.Issue != nil {
		p.mu.Lock()
		p.notified[target.Issue.ID+"/"+agentID] = true
		p.mu.Unlock()
	}
	return nil
}

// AlreadyNotified implements Notifier, remembering within the process only.
func (p *PromptProvider) AlreadyNotified(ctx context.Context, target Target, agentID string) (bool, error) {
	if target.Issue == nil {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notified[target.Issue.ID+"/"+agentID], nil
}

// promptTitle derives a short title from the first line of the prompt.
func promptTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	// Truncate on a rune boundary so multi-byte text stays valid UTF-8.
	if runes := []rune(line); len(runes) > promptTitleLimit {
		line = strings.TrimSpace(string(runes[:promptTitleLimit])) + "..."
	}
	return cases.Title(language.English).String(line)
}
