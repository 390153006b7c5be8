package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kaos-euy/backend-kaos/internal/obs"
)

// Notifier delivers a plain-text notification to an operator channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// SlackNotifier posts messages to a Slack incoming webhook. A missing webhook
// URL disables delivery; the constructor logs the fact once and Send becomes
// a no-op.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
	Metrics    *obs.ShopMetrics
	Log        zerolog.Logger
}

// NewSlackNotifier constructs a notifier with an instrumented HTTP client.
func NewSlackNotifier(webhookURL string, timeout time.Duration, metrics *obs.ShopMetrics, log zerolog.Logger) *SlackNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(webhookURL) == "" {
		log.Warn().Msg("slack webhook url not configured, notifications disabled")
	}
	return &SlackNotifier{
		WebhookURL: strings.TrimSpace(webhookURL),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Metrics: metrics,
		Log:     log,
	}
}

// Send posts the message. Non-2xx responses are returned as errors so the
// task queue retries delivery.
func (n *SlackNotifier) Send(ctx context.Context, text string) error {
	if n.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		n.count("error")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		n.count("error")
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	n.count("ok")
	return nil
}

func (n *SlackNotifier) count(outcome string) {
	if n.Metrics != nil {
		n.Metrics.NotificationAttempts.WithLabelValues("slack", outcome).Inc()
	}
}

// NopNotifier discards messages. Stands in for the email channel until an
// SMTP sender is configured.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string) error { return nil }
