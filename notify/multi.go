package notify

import (
	"context"
	"log/slog"
)

// MultiNotifier fans an event out to several notifiers. Every notifier
// is attempted; failures are logged and the last error is returned.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Add appends another notifier.
func (n *MultiNotifier) Add(notifier Notifier) {
	n.notifiers = append(n.notifiers, notifier)
}

func (n *MultiNotifier) Notify(ctx context.Context, event Event) error {
	var lastErr error
	for _, notifier := range n.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			slog.Warn("notification delivery failed",
				"type", event.Type,
				"run_id", event.RunID,
				"error", err)
			lastErr = err
		}
	}
	return lastErr
}
