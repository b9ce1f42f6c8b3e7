// Package notify delivers terminal download notifications to an
// operator-configured sink. A missing sink degrades to a no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier sends a short human-readable message out of band.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// FromConfig returns a webhook notifier when a URL is configured and a
// silent no-op otherwise.
func FromConfig(webhookURL string, logger *slog.Logger) Notifier {
	if webhookURL == "" {
		logger.Info("no webhook configured, notifications disabled")
		return Noop{}
	}
	return NewWebhook(webhookURL, logger)
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) Notify(context.Context, string) {}

// Webhook POSTs notifications as JSON to a configured URL. Delivery is
// best effort: failures are logged and dropped, never propagated.
type Webhook struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewWebhook creates a webhook notifier for the given URL.
func NewWebhook(url string, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}
}

func (w *Webhook) Notify(ctx context.Context, msg string) {
	body, err := json.Marshal(map[string]string{"message": msg})
	if err != nil {
		w.log.Error("failed to encode notification", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.Error("failed to create notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn("failed to deliver notification", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.log.Warn("notification rejected", "status", fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
}
