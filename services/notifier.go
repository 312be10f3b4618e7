package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// WebhookNotifier posts the aggregated verification report to a webhook.
// Delivery is strictly best effort: a missing URL or a failed POST is logged
// and swallowed, never affecting the run's outcome.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *logrus.Logger
}

func NewWebhookNotifier(webhookURL string, client *http.Client) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     client,
		logger:     logrus.StandardLogger(),
	}
}

// Notify sends the report lines as a single multi-line message.
func (n *WebhookNotifier) Notify(ctx context.Context, lines []string) {
	if n.webhookURL == "" {
		n.logger.Debug("No webhook URL configured, skipping notification")
		return
	}

	payload, err := json.Marshal(map[string]string{
		"text": "🍷 Fee verification report\n" + strings.Join(lines, "\n"),
	})
	if err != nil {
		n.logger.WithError(err).Warn("Failed to marshal webhook payload")
		return
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.WithError(err).Warn("Failed to build webhook request")
		return
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := n.client.Do(request)
	if err != nil {
		n.logger.WithError(err).Warn("Webhook notification failed")
		return
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		n.logger.WithField("status_code", response.StatusCode).Warn("Webhook returned non-2xx status")
		return
	}

	n.logger.WithField("lines", len(lines)).Debug("Webhook notification delivered")
}
