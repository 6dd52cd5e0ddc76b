package provider

import (
	"context"
	"errors"
	"strings"

	sferrors "github.com/randalmurphal/shipflow/errors"
	"github.com/randalmurphal/shipflow/issue"
	"github.com/randalmurphal/shipflow/issuedb"
)

// LocalProvider serves the "local" source from the SQLite issue store.
// Local issues live outside any hosting platform, so notifications land in
// the store as comments rather than on a remote.
type LocalProvider struct {
	db *issuedb.DB
}

// NewLocalProvider wraps an open issue store.
func NewLocalProvider(db *issuedb.DB) *LocalProvider {
	return &LocalProvider{db: db}
}

// GetIssue implements IssueProvider.
func (p *LocalProvider) GetIssue(ctx context.Context, localID string) (*issue.Issue, error) {
	rec, err := p.db.Get(localID)
	if errors.Is(err, issuedb.ErrNotFound) {
		return nil, &sferrors.ResolutionError{
			Ref:        localID,
			Reason:     "no local issue with that ID",
			Suggestion: "List local issues to find the right ID, or create one first.",
		}
	}
	if err != nil {
		return nil, err
	}

	return &issue.Issue{
		ID:          rec.ID,
		Source:      issue.SourceLocal,
		Title:       rec.Title,
		Description: rec.Description,
		Labels:      rec.Labels,
	}, nil
}

// Notify implements Notifier by recording a comment on the local issue.
func (p *LocalProvider) Notify(ctx context.Context, target Target, message, agentID string) error {
	if target.Issue == nil {
		return errors.New("local notifications target issues only")
	}
	_, err := p.db.AddComment(target.Issue.ID, agentID, markMessage(message, agentID))
	return err
}

// AlreadyNotified implements Notifier.
func (p *LocalProvider) AlreadyNotified(ctx context.Context, target Target, agentID string) (bool, error) {
	if target.Issue == nil {
		return false, errors.New("local notifications target issues only")
	}
	comments, err := p.db.Comments(target.Issue.ID)
	if err != nil {
		return false, err
	}
	marker := BotMarker(agentID)
	for _, c := range comments {
		if strings.Contains(c.Body, marker) {
			return true, nil
		}
	}
	return false, nil
}
