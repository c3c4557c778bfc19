// Package notifier delivers lunch messages to Slack via an incoming webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type SlackNotifier struct {
	logger     *slog.Logger
	httpClient *http.Client
	webhookURL string
}

func NewSlackNotifier(logger *slog.Logger, webhookURL string, httpClient *http.Client) *SlackNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackNotifier{
		logger:     logger.With("provider", "slack"),
		httpClient: httpClient,
		webhookURL: webhookURL,
	}
}

// slackPayload is the incoming-webhook message body.
type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendReminder posts the good-weather lunch invitation.
func (n *SlackNotifier) SendReminder(ctx context.Context, temperature int, description, location, confirmationURL string) error {
	text := fmt.Sprintf("☀️ Lunch outside today in %s? %d°C and %s at noon.", location, temperature, description)
	body := fmt.Sprintf("*%d°C, %s* in %s at noon — perfect for lunch outside!", temperature, description, location)
	if confirmationURL != "" {
		body += fmt.Sprintf("\n<%s|Confirm lunch for this week> to pause reminders.", confirmationURL)
	}
	return n.post(ctx, "reminder", slackPayload{
		Text: text,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: body}},
		},
	})
}

// SendWarning posts the bad-weather heads-up for opted-in locations.
func (n *SlackNotifier) SendWarning(ctx context.Context, temperature int, description, location, optOutURL string) error {
	text := fmt.Sprintf("🌧 No outdoor lunch in %s today: %d°C and %s.", location, temperature, description)
	body := fmt.Sprintf("*%d°C, %s* in %s — better stay inside today.", temperature, description, location)
	if optOutURL != "" {
		body += fmt.Sprintf("\n<%s|Opt out of weather warnings> if you'd rather not hear about bad days.", optOutURL)
	}
	return n.post(ctx, "warning", slackPayload{
		Text: text,
		Blocks: []slackBlock{
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: body}},
		},
	})
}

func (n *SlackNotifier) post(ctx context.Context, msgType string, payload slackPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.InfoContext(ctx, "Slack message delivered", "type", msgType)
	return nil
}
