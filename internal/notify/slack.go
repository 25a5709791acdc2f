package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/bounty-radar/internal/models"
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("slack webhook url not configured")

const defaultTimeout = 10 * time.Second

// Slack posts bounty alerts to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	log        *slog.Logger
}

// NewSlack builds a notifier. An empty webhookURL is allowed; Notify then
// returns ErrNotConfigured.
func NewSlack(webhookURL string, timeout time.Duration, logger *slog.Logger) *Slack {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Slack{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     &http.Client{Timeout: timeout},
		log:        logger,
	}
}

// Configured reports whether a webhook URL is present.
func (s *Slack) Configured() bool {
	return s.webhookURL != ""
}

// Notify delivers one alert. It makes a single attempt.
func (s *Slack) Notify(ctx context.Context, b models.Bounty) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(BuildMessage(b))
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("webhook returned %s: %s", res.Status, strings.TrimSpace(string(body)))
	}

	s.log.Info("slack notification sent", slog.String("title", b.Title), slog.Float64("value", b.Value))
	return nil
}
