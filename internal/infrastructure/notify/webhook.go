// Package notify delivers domain events to an external webhook. The
// receiving system owns the fan-out to email, chat, or whatever channel the
// recipient prefers; this side only guarantees a well-formed POST per event.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/event"
	"go.uber.org/zap"
)

// WebhookSender implements port.NotificationSender by POSTing each event as
// JSON to a configured URL. With an empty URL it degrades to log-only, which
// keeps local development working without a receiver.
type WebhookSender struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookSender creates a webhook notification sender
func NewWebhookSender(url string, logger *zap.Logger) *WebhookSender {
	return &WebhookSender{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Send delivers one event to the webhook
func (s *WebhookSender) Send(ctx context.Context, evt *event.Event) error {
	if s.url == "" {
		s.logger.Info("Notification (no webhook configured)",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)),
			zap.String("claim_ref", evt.ClaimRef),
			zap.Int64("recipient_id", evt.RecipientID))
		return nil
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.logger.Info("Notification delivered",
		zap.String("event_id", evt.ID),
		zap.String("type", string(evt.Type)),
		zap.Int64("recipient_id", evt.RecipientID))
	return nil
}

// Verify interface compliance
var _ port.NotificationSender = (*WebhookSender)(nil)
