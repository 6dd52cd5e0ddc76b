package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackNotifier posts events to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	client     *http.Client
}

// SlackOption configures a SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithChannel overrides the webhook's default channel.
func WithChannel(channel string) SlackOption {
	return func(n *SlackNotifier) {
		n.channel = channel
	}
}

// WithUsername sets the display name for posted messages.
func WithUsername(username string) SlackOption {
	return func(n *SlackNotifier) {
		n.username = username
	}
}

// NewSlackNotifier creates a notifier for the given incoming-webhook URL.
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	n := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "shipflow",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	payload := slackPayload{
		Channel:  n.channel,
		Username: n.username,
		Text:     event.Message,
		Attachments: []slackAttachment{{
			Color:  severityColor(event.Severity),
			Fields: eventFields(event),
			Footer: "shipflow",
			Ts:     event.Timestamp.Unix(),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func severityColor(severity string) string {
	switch severity {
	case SeverityError:
		return "danger"
	case SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

func eventFields(event Event) []slackField {
	fields := []slackField{
		{Title: "Run", Value: event.RunID, Short: true},
		{Title: "Event", Value: string(event.Type), Short: true},
	}
	if event.IssueRef != "" {
		fields = append(fields, slackField{Title: "Issue", Value: event.IssueRef, Short: true})
	}
	if event.Phase != "" {
		fields = append(fields, slackField{Title: "Phase", Value: event.Phase, Short: true})
	}
	return fields
}
