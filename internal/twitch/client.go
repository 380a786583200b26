package twitch

import (
	"context"
	"fmt"
	"sync"

	"github.com/nicklaw5/helix/v2"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
)

// LiveStream is one currently-live broadcast from the bulk status query.
type LiveStream struct {
	SessionID string
	Title     string
}

// User is a resolved Twitch account.
type User struct {
	ID          string
	Login       string
	DisplayName string
	AvatarURL   string
}

// Client wraps a Helix client for live-status and user lookups. Every call
// fetches a token from the provider first; a failed exchange surfaces as a
// *TokenError the caller treats as "skip this cycle".
type Client struct {
	mu     sync.Mutex
	helix  *helix.Client
	tokens domain.TokenProvider
}

// ClientOption customizes the underlying Helix client, used by tests to
// point at a mock API server.
type ClientOption func(*helix.Options)

func WithAPIBaseURL(baseURL string) ClientOption {
	return func(o *helix.Options) {
		o.APIBaseURL = baseURL
	}
}

func NewClient(clientID string, tokens domain.TokenProvider, opts ...ClientOption) (*Client, error) {
	options := &helix.Options{ClientID: clientID}
	for _, opt := range opts {
		opt(options)
	}

	client, err := helix.NewClient(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	return &Client{helix: client, tokens: tokens}, nil
}

// maxIDsPerQuery is the Helix limit on user ids per Get Streams call.
const maxIDsPerQuery = 100

// LiveStreams queries live status for the given user ids, batching them
// into pages of at most maxIDsPerQuery, and returns the subset that is
// currently live, keyed by user id. Users absent from the result are
// offline.
func (c *Client) LiveStreams(ctx context.Context, userIDs []string) (map[string]LiveStream, error) {
	if len(userIDs) == 0 {
		return map[string]LiveStream{}, nil
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	live := make(map[string]LiveStream)
	for start := 0; start < len(userIDs); start += maxIDsPerQuery {
		end := start + maxIDsPerQuery
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := userIDs[start:end]

		c.mu.Lock()
		c.helix.SetAppAccessToken(token)
		resp, err := c.helix.GetStreams(&helix.StreamsParams{
			UserIDs: batch,
			First:   len(batch),
		})
		c.mu.Unlock()

		if err != nil {
			return nil, fmt.Errorf("failed to query live streams: %w", err)
		}
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("live stream query returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
		}

		for _, s := range resp.Data.Streams {
			live[s.UserID] = LiveStream{SessionID: s.ID, Title: s.Title}
		}
	}
	return live, nil
}

// UserByLogin resolves a username to its account. Returns
// domain.ErrNotFoundUpstream when no such user exists.
func (c *Client) UserByLogin(ctx context.Context, login string) (*User, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.helix.SetAppAccessToken(token)
	resp, err := c.helix.GetUsers(&helix.UsersParams{Logins: []string{login}})
	c.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %q: %w", login, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("user lookup returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	if len(resp.Data.Users) == 0 {
		return nil, domain.ErrNotFoundUpstream
	}

	u := resp.Data.Users[0]
	return &User{
		ID:          u.ID,
		Login:       u.Login,
		DisplayName: u.DisplayName,
		AvatarURL:   u.ProfileImageURL,
	}, nil
}
