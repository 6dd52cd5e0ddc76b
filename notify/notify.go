package notify

import (
	"context"
	"time"
)

// EventType identifies a run-lifecycle event.
type EventType string

const (
	EventRunPlanned      EventType = "run_planned"
	EventPhaseCompleted  EventType = "phase_completed"
	EventRunFailed       EventType = "run_failed"
	EventRunCancelled    EventType = "run_cancelled"
	EventReviewExhausted EventType = "review_exhausted"
	EventReviewCreated   EventType = "review_created"
	EventRunShipped      EventType = "run_shipped"
)

// Severity levels for events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event describes a run-lifecycle event. Events are observational;
// platform-facing messages (issue comments) go through the provider
// Notifier instead.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	IssueRef  string         `json:"issue_ref,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Message   string         `json:"message"`
	Severity  string         `json:"severity"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Notifier delivers run-lifecycle events. A failed notification never
// fails a run; callers log and continue.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(_ context.Context, _ Event) error { return nil }

type contextKey string

const notifierKey contextKey = "shipflow.notifier"

// WithNotifier returns a context carrying the given Notifier.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey, n)
}

// FromContext extracts the Notifier from the context, or nil.
func FromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(notifierKey).(Notifier); ok {
		return n
	}
	return nil
}
