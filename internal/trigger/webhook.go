package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bakkerme/experiments-refresh/internal/core"
	"github.com/bakkerme/experiments-refresh/internal/retry"
)

const maxErrorBody = 4 << 10

// WebhookPayload is the JSON body posted on every trigger.
type WebhookPayload struct {
	Reason      string    `json:"reason"`
	CheckID     string    `json:"check_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Webhook asks a remote service to refresh experiments by POSTing to URL.
// Delivery happens in the background; failures are logged and dropped.
type Webhook struct {
	url       string
	token     string
	userAgent string
	client    *http.Client
	retry     retry.Config
	wg        sync.WaitGroup
}

func NewWebhook(url, token, userAgent string, timeout time.Duration) (*Webhook, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = "experiments-refresh/0.1"
	}
	return &Webhook{
		url:       url,
		token:     strings.TrimSpace(token),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		retry:     retry.Config{Attempts: 3, BaseDelay: 200 * time.Millisecond},
	}, nil
}

// WithRetry overrides the delivery retry policy.
func (w *Webhook) WithRetry(cfg retry.Config) *Webhook {
	w.retry = cfg
	return w
}

func (w *Webhook) TriggerFetch(ctx context.Context) {
	payload := WebhookPayload{
		Reason:      "experiments_refresh",
		CheckID:     core.CheckIDFromContext(ctx),
		RequestedAt: time.Now().UTC(),
	}
	// Delivery outlives the check that requested it.
	bg := context.WithoutCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		logger := core.LoggerFromContext(bg).With("trigger", "webhook", "url", w.url)
		if err := w.deliver(bg, payload); err != nil {
			logger.Error("experiments fetch webhook failed", "error", err)
			return
		}
		logger.Info("experiments fetch webhook delivered")
	}()
}

// Wait blocks until all in-flight deliveries have finished.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

func (w *Webhook) deliver(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	cfg := w.retry
	cfg.OnRetry = func(attempt int, err error) {
		core.LoggerFromContext(ctx).Warn("retrying experiments fetch webhook", "attempt", attempt, "error", err)
	}
	return retry.Do(ctx, cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", w.userAgent)
		if w.token != "" {
			req.Header.Set("Authorization", "Bearer "+w.token)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err = fmt.Errorf("webhook status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return err
		}
		return retry.Permanent(err)
	})
}
