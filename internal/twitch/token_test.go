package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/storage"
)

func TestTokenError_Message(t *testing.T) {
	err := &TokenError{Err: fmt.Errorf("boom")}
	assert.Contains(t, err.Error(), "token exchange failed:")
	assert.Contains(t, err.Error(), "boom")
}

func TestAccessToken_Exchange(t *testing.T) {
	exchanges := 0
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		err := r.ParseForm()
		require.NoError(t, err)
		assert.Equal(t, "test_client", r.FormValue("client_id"))
		assert.Equal(t, "test_secret", r.FormValue("client_secret"))
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "app_token",
			"expires_in":   3600,
		})
	}))
	defer mockServer.Close()

	p := NewAppTokenProvider("test_client", "test_secret", nil, clockwork.NewFakeClock())
	p.tokenURL = mockServer.URL

	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app_token", token)
	assert.Equal(t, 1, exchanges)
}

func TestAccessToken_CachedWithinExpiryWindow(t *testing.T) {
	exchanges := 0
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		json.NewEncoder(w).Encode(map[string]any{"access_token": "app_token", "expires_in": 3600})
	}))
	defer mockServer.Close()

	p := NewAppTokenProvider("test_client", "test_secret", nil, clockwork.NewFakeClock())
	p.tokenURL = mockServer.URL

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = p.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, exchanges, "second call within the expiry window must not exchange again")
}

func TestAccessToken_RefreshesWithinSkewOfExpiry(t *testing.T) {
	exchanges := 0
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		json.NewEncoder(w).Encode(map[string]any{"access_token": fmt.Sprintf("token_%d", exchanges), "expires_in": 3600})
	}))
	defer mockServer.Close()

	clock := clockwork.NewFakeClock()
	p := NewAppTokenProvider("test_client", "test_secret", nil, clock)
	p.tokenURL = mockServer.URL

	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token_1", token)

	// Within 60s of expiry the token counts as unusable.
	clock.Advance(3600*time.Second - 30*time.Second)

	token, err = p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token_2", token)
	assert.Equal(t, 2, exchanges)
}

func TestAccessToken_ExchangeFailure(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":403,"message":"invalid client secret"}`))
	}))
	defer mockServer.Close()

	p := NewAppTokenProvider("test_client", "bad_secret", nil, clockwork.NewFakeClock())
	p.tokenURL = mockServer.URL

	_, err := p.AccessToken(context.Background())
	require.Error(t, err)

	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Contains(t, tokenErr.Error(), "invalid client secret")
}

type fakeGateway struct {
	saved map[string]any
}

func (g *fakeGateway) Save(name string, v any) error {
	if g.saved == nil {
		g.saved = make(map[string]any)
	}
	g.saved[name] = v
	return nil
}

func (g *fakeGateway) Load(name string, v any) error {
	if tok, ok := g.saved[name]; ok {
		*(v.(*domain.OAuthToken)) = tok.(domain.OAuthToken)
	}
	return nil
}

func TestAccessToken_PersistsAndReloads(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "persisted", "expires_in": 3600})
	}))
	defer mockServer.Close()

	clock := clockwork.NewFakeClock()
	gw := &fakeGateway{}

	p := NewAppTokenProvider("test_client", "test_secret", gw, clock)
	p.tokenURL = mockServer.URL

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gw.saved, storage.Token)

	// A new provider built over the same gateway reuses the stored token
	// without hitting the exchange endpoint.
	mockServer.Close()
	p2 := NewAppTokenProvider("test_client", "test_secret", gw, clock)
	p2.tokenURL = mockServer.URL

	token, err := p2.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}
