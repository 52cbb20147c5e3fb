// Package notify delivers report summaries to configured Telegram chats
// over the Bot HTTP API. Sends are fire-and-forget per recipient; one
// failed chat never blocks the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// SendError records one failed recipient of a partially successful send.
type SendError struct {
	ChatID int64  `json:"chat_id"`
	Reason string `json:"reason"`
}

// Notifier sends messages through the Telegram Bot API.
type Notifier struct {
	client  *resty.Client
	log     *slog.Logger
	chatIDs []int64
}

// NewNotifier creates a notifier for the given bot token and recipients.
func NewNotifier(log *slog.Logger, token string, chatIDs []int64) *Notifier {
	client := resty.New().
		SetBaseURL("https://api.telegram.org/bot" + token).
		SetTimeout(defaultTimeout)

	return &Notifier{client: client, log: log, chatIDs: chatIDs}
}

// NewNotifierWithBaseURL is like NewNotifier but targets a custom API
// endpoint. Used by tests.
func NewNotifierWithBaseURL(log *slog.Logger, baseURL string, chatIDs []int64) *Notifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout)

	return &Notifier{client: client, log: log, chatIDs: chatIDs}
}

// Broadcast sends the text to every configured chat and returns the
// failures. Failed sends are logged and reported, never retried.
func (n *Notifier) Broadcast(ctx context.Context, text string) []SendError {
	var failures []SendError

	for _, chatID := range n.chatIDs {
		if err := n.send(ctx, chatID, text); err != nil {
			n.log.ErrorContext(ctx, "Failed to send notification", "chat", chatID, "error", err)
			failures = append(failures, SendError{ChatID: chatID, Reason: err.Error()})
		}
	}

	return failures
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"chat_id": chatID, "text": text}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("failed to call sendMessage: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("sendMessage returned status %d", resp.StatusCode())
	}

	return nil
}
