package provider

import (
	"context"

	"github.com/randalmurphal/shipflow/issue"
)

// MockIssueProvider is a function-field mock of IssueProvider for testing.
type MockIssueProvider struct {
	GetIssueFunc func(ctx context.Context, localID string) (*issue.Issue, error)
}

// GetIssue implements IssueProvider.
func (m *MockIssueProvider) GetIssue(ctx context.Context, localID string) (*issue.Issue, error) {
	if m.GetIssueFunc != nil {
		return m.GetIssueFunc(ctx, localID)
	}
	return &issue.Issue{ID: localID, Title: "mock issue"}, nil
}

// MockReviewProvider is a function-field mock of ReviewProvider for testing.
type MockReviewProvider struct {
	CheckExistsFunc func(ctx context.Context, branch string) (*CodeReview, error)
	CreateFunc      func(ctx context.Context, opts CreateReviewOptions) (*CodeReview, error)
	ApproveFunc     func(ctx context.Context, id int, message string) error
	MergeFunc       func(ctx context.Context, id int, method MergeMethod, message string) error
	GetStatusFunc   func(ctx context.Context, id int) (ReviewStatus, error)
}

// CheckExists implements ReviewProvider.
func (m *MockReviewProvider) CheckExists(ctx context.Context, branch string) (*CodeReview, error) {
	if m.CheckExistsFunc != nil {
		return m.CheckExistsFunc(ctx, branch)
	}
	return nil, nil
}

// Create implements ReviewProvider.
func (m *MockReviewProvider) Create(ctx context.Context, opts CreateReviewOptions) (*CodeReview, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, opts)
	}
	return &CodeReview{
		ID:           1,
		URL:          "https://example.com/review/1",
		SourceBranch: opts.Branch,
		TargetBranch: opts.TargetBranch,
		Status:       ReviewOpen,
	}, nil
}

// Approve implements ReviewProvider.
func (m *MockReviewProvider) Approve(ctx context.Context, id int, message string) error {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id, message)
	}
	return nil
}

// Merge implements ReviewProvider.
func (m *MockReviewProvider) Merge(ctx context.Context, id int, method MergeMethod, message string) error {
	if m.MergeFunc != nil {
		return m.MergeFunc(ctx, id, method, message)
	}
	return nil
}

// GetStatus implements ReviewProvider.
func (m *MockReviewProvider) GetStatus(ctx context.Context, id int) (ReviewStatus, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, id)
	}
	return ReviewOpen, nil
}

// MockNotifier is a function-field mock of Notifier for testing.
type MockNotifier struct {
	NotifyFunc          func(ctx context.Context, target Target, message, agentID string) error
	AlreadyNotifiedFunc func(ctx context.Context, target Target, agentID string) (bool, error)

	// Sent records every delivered message when NotifyFunc is nil.
	Sent []string
}

// Notify implements Notifier.
func (m *MockNotifier) Notify(ctx context.Context, target Target, message, agentID string) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, target, message, agentID)
	}
	m.Sent = append(m.Sent, markMessage(message, agentID))
	return nil
}

// AlreadyNotified implements Notifier.
func (m *MockNotifier) AlreadyNotified(ctx context.Context, target Target, agentID string) (bool, error) {
	if m.AlreadyNotifiedFunc != nil {
		return m.AlreadyNotifiedFunc(ctx, target, agentID)
	}
	return false, nil
}
