package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/logger"
)

// Webhook forwards zone-wide notifications to an external HTTP listener such as a chat
// relay. Per-participant notifications stay on the SSE stream.
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook creates a webhook forwarder for url.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: WebhookTimeout},
	}
}

// Subscribe registers the webhook for every notification type.
func (w *Webhook) Subscribe(bus event.Bus) {
	event.SubscribeAll(bus, w.handle)
	logger.Info(LogMsgWebhookSubscribed, "url", w.url)
}

func (w *Webhook) handle(ctx context.Context, evt event.Event) error {
	if evt.Metadata.Recipient != "" {
		return nil
	}
	if err := w.send(ctx, evt); err != nil {
		// Don't fail the bus: a retry would re-deliver to every other subscriber.
		logger.FromContext(ctx).Error(LogMsgWebhookFailed, "type", evt.Type, "error", err)
	}
	return nil
}

func (w *Webhook) send(ctx context.Context, evt event.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf(ErrMsgWebhookStatus, resp.StatusCode)
	}
	return nil
}
