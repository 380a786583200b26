package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flusswasser/nightbot-uninstall/internal/platform/retry"
)

const (
	defaultHubURL = "https://pubsubhubbub.appspot.com/subscribe"
	topicURLBase  = "https://www.youtube.com/xml/feeds/videos.xml?channel_id="

	// LeaseSeconds is requested from the hub on every (re)subscribe. The
	// renewal loop runs a day earlier than this expires.
	LeaseSeconds = 5 * 24 * 60 * 60
)

// HubSubscriber issues subscribe requests to the push hub for channel
// topics, pointing deliveries at the configured callback URL.
type HubSubscriber struct {
	callbackURL string
	hubURL      string // configurable for testing
	httpClient  *http.Client
	policy      retry.Policy
}

func NewHubSubscriber(callbackURL string) *HubSubscriber {
	return &HubSubscriber{
		callbackURL: callbackURL,
		hubURL:      defaultHubURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Hub subscribe retry", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

// Subscribe requests (or renews) the hub lease for one channel topic.
// Client-side rejections abort immediately; transient hub failures are
// retried with backoff.
func (h *HubSubscriber) Subscribe(ctx context.Context, channelID string) error {
	return retry.DoVoid(ctx, h.policy, classifyHubError, func() error {
		return h.subscribeOnce(ctx, channelID)
	})
}

func (h *HubSubscriber) subscribeOnce(ctx context.Context, channelID string) error {
	data := url.Values{}
	data.Set("hub.mode", "subscribe")
	data.Set("hub.topic", topicURLBase+channelID)
	data.Set("hub.callback", h.callbackURL)
	data.Set("hub.lease_seconds", strconv.Itoa(LeaseSeconds))

	req, err := http.NewRequestWithContext(ctx, "POST", h.hubURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build hub request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &hubError{status: resp.StatusCode, body: string(body)}
	}
	return nil
}

type hubError struct {
	status int
	body   string
}

func (e *hubError) Error() string {
	return fmt.Sprintf("hub returned status %d: %s", e.status, e.body)
}

func classifyHubError(err error) retry.Action {
	var he *hubError
	if errors.As(err, &he) && he.status >= 400 && he.status < 500 {
		return retry.Stop
	}
	return retry.Retry
}
