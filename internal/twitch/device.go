package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/metrics"
	"github.com/flusswasser/nightbot-uninstall/internal/storage"
)

const defaultDeviceCodeURL = "https://id.twitch.tv/oauth2/device"

// pendingMessage is the token endpoint's body marker for a device code the
// human has not approved yet. It is a wait signal, not a failure.
const pendingMessage = "authorization_pending"

// DeviceCodeProvider obtains tokens via the device-authorization flow, used
// when no client secret is provisioned. State machine: no device code →
// code issued → {pending | authorized | expired}. Issuing a code logs a
// verification URL the operator must open; until the grant is approved,
// AccessToken returns domain.ErrAuthorizationPending and callers simply try
// again next cycle.
type DeviceCodeProvider struct {
	clientID   string
	scopes     []string
	deviceURL  string // configurable for testing
	tokenURL   string
	httpClient *http.Client
	clock      clockwork.Clock
	gateway    tokenGateway

	mu    sync.Mutex
	token domain.OAuthToken

	// transient device-code state, discarded once a token is obtained or
	// the code expires
	deviceCode      string
	verificationURI string
	pollInterval    time.Duration
	codeExpiresAt   time.Time
	nextPollAt      time.Time
}

func NewDeviceCodeProvider(clientID string, scopes []string, gateway tokenGateway, clock clockwork.Clock) *DeviceCodeProvider {
	p := &DeviceCodeProvider{
		clientID:   clientID,
		scopes:     scopes,
		deviceURL:  defaultDeviceCodeURL,
		tokenURL:   defaultOAuthTokenURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clock:      clock,
		gateway:    gateway,
	}

	if gateway != nil {
		var tok domain.OAuthToken
		if err := gateway.Load(storage.Token, &tok); err != nil {
			slog.Warn("Failed to load persisted token", "error", err)
		} else if tok.Usable(clock.Now()) {
			p.token = tok
		}
	}

	return p
}

// AccessToken drives the device-flow state machine one step and returns a
// token once the grant is approved. While approval is outstanding it
// returns domain.ErrAuthorizationPending.
func (p *DeviceCodeProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	if p.token.Usable(now) {
		return p.token.AccessToken, nil
	}

	if p.deviceCode == "" {
		if err := p.issueDeviceCode(ctx); err != nil {
			return "", err
		}
		return "", domain.ErrAuthorizationPending
	}

	if now.After(p.codeExpiresAt) {
		// Expired before approval; reissue on the next call.
		p.resetDeviceState()
		return "", domain.ErrAuthorizationPending
	}

	if now.Before(p.nextPollAt) {
		return "", domain.ErrAuthorizationPending
	}

	return p.pollToken(ctx)
}

// issueDeviceCode requests a fresh device code and surfaces the
// verification URL to the operator. Must be called with the mutex held.
func (p *DeviceCodeProvider) issueDeviceCode(ctx context.Context) error {
	data := url.Values{}
	data.Set("client_id", p.clientID)
	data.Set("scopes", strings.Join(p.scopes, " "))

	req, err := http.NewRequestWithContext(ctx, "POST", p.deviceURL, strings.NewReader(data.Encode()))
	if err != nil {
		return &TokenError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &TokenError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TokenError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &TokenError{Err: fmt.Errorf("device code request failed with status %d: %s", resp.StatusCode, string(body))}
	}

	var result struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return &TokenError{Err: err}
	}

	now := p.clock.Now()
	p.deviceCode = result.DeviceCode
	p.verificationURI = result.VerificationURI
	p.pollInterval = time.Duration(result.Interval) * time.Second
	if p.pollInterval <= 0 {
		p.pollInterval = 5 * time.Second
	}
	p.codeExpiresAt = now.Add(time.Duration(result.ExpiresIn) * time.Second)
	p.nextPollAt = now.Add(p.pollInterval)

	slog.Info("Device authorization required",
		"verification_uri", result.VerificationURI,
		"user_code", result.UserCode)

	return nil
}

// pollToken asks the token endpoint whether the grant has been approved.
// Must be called with the mutex held.
func (p *DeviceCodeProvider) pollToken(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("client_id", p.clientID)
	data.Set("scopes", strings.Join(p.scopes, " "))
	data.Set("device_code", p.deviceCode)
	data.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")

	req, err := http.NewRequestWithContext(ctx, "POST", p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", &TokenError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &TokenError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TokenError{Err: err}
	}

	p.nextPollAt = p.clock.Now().Add(p.pollInterval)

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message == pendingMessage {
			return "", domain.ErrAuthorizationPending
		}

		// Hard failure: the device code is dead, reissue before retrying.
		p.resetDeviceState()
		metrics.TokenExchangesTotal.WithLabelValues("device_code", "error").Inc()
		return "", &TokenError{Err: fmt.Errorf("device token poll failed with status %d: %s", resp.StatusCode, string(body))}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &TokenError{Err: err}
	}

	p.token = domain.OAuthToken{
		AccessToken: result.AccessToken,
		ExpiresAt:   p.clock.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}
	p.resetDeviceState()
	metrics.TokenExchangesTotal.WithLabelValues("device_code", "success").Inc()

	if p.gateway != nil {
		if err := p.gateway.Save(storage.Token, p.token); err != nil {
			slog.Error("Failed to persist token", "error", err)
		}
	}

	return p.token.AccessToken, nil
}

// resetDeviceState discards the transient device-code state. Must be called
// with the mutex held.
func (p *DeviceCodeProvider) resetDeviceState() {
	p.deviceCode = ""
	p.verificationURI = ""
	p.pollInterval = 0
	p.codeExpiresAt = time.Time{}
	p.nextPollAt = time.Time{}
}
