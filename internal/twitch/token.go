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
	"golang.org/x/sync/singleflight"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/metrics"
	"github.com/flusswasser/nightbot-uninstall/internal/storage"
)

const defaultOAuthTokenURL = "https://id.twitch.tv/oauth2/token"

// TokenError wraps a failed credential exchange. Callers skip the dependent
// operation for the cycle instead of treating it as fatal.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

// tokenGateway persists the current token across restarts.
type tokenGateway interface {
	Save(name string, v any) error
	Load(name string, v any) error
}

// AppTokenProvider obtains app access tokens via the client-credentials
// exchange. The current token is cached and replaced atomically when it
// falls within the expiry skew; concurrent callers share one exchange.
type AppTokenProvider struct {
	clientID     string
	clientSecret string
	tokenURL     string // OAuth token endpoint URL (configurable for testing)
	httpClient   *http.Client
	clock        clockwork.Clock
	gateway      tokenGateway

	group singleflight.Group

	mu    sync.Mutex
	token domain.OAuthToken
}

func NewAppTokenProvider(clientID, clientSecret string, gateway tokenGateway, clock clockwork.Clock) *AppTokenProvider {
	p := &AppTokenProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultOAuthTokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		clock:        clock,
		gateway:      gateway,
	}

	// Reuse an unexpired token from a previous run.
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

// AccessToken returns a currently-valid bearer token, performing the
// client-credentials exchange when the cached one is missing or within the
// expiry skew.
func (p *AppTokenProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.token.Usable(p.clock.Now()) {
		token := p.token.AccessToken
		p.mu.Unlock()
		return token, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("token", func() (any, error) {
		return p.exchange(ctx)
	})
	if err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("client_credentials", "error").Inc()
		return "", err
	}

	token := v.(domain.OAuthToken)
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()

	metrics.TokenExchangesTotal.WithLabelValues("client_credentials", "success").Inc()

	if p.gateway != nil {
		if err := p.gateway.Save(storage.Token, token); err != nil {
			slog.Error("Failed to persist token", "error", err)
		}
	}

	return token.AccessToken, nil
}

func (p *AppTokenProvider) exchange(ctx context.Context) (domain.OAuthToken, error) {
	data := url.Values{}
	data.Set("client_id", p.clientID)
	data.Set("client_secret", p.clientSecret)
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, "POST", p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return domain.OAuthToken{}, &TokenError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.OAuthToken{}, &TokenError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.OAuthToken{}, &TokenError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.OAuthToken{}, &TokenError{
			Err: fmt.Errorf("exchange failed with status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.OAuthToken{}, &TokenError{Err: err}
	}

	return domain.OAuthToken{
		AccessToken: result.AccessToken,
		ExpiresAt:   p.clock.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}
