package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger. A nil
// logger uses the default logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	attrs := []any{
		slog.String("type", string(event.Type)),
		slog.String("run_id", event.RunID),
	}
	if event.IssueRef != "" {
		attrs = append(attrs, slog.String("issue", event.IssueRef))
	}
	if event.Phase != "" {
		attrs = append(attrs, slog.String("phase", event.Phase))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}

	switch event.Severity {
	case SeverityError:
		n.logger.ErrorContext(ctx, event.Message, attrs...)
	case SeverityWarning:
		n.logger.WarnContext(ctx, event.Message, attrs...)
	default:
		n.logger.InfoContext(ctx, event.Message, attrs...)
	}
	return nil
}
