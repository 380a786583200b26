package domain

import (
	"context"
	"time"
)

// TokenExpirySkew is the safety margin subtracted from a token's expiry when
// deciding whether it is still usable.
const TokenExpirySkew = 60 * time.Second

// OAuthToken is a short-lived bearer credential for the livestream
// platform's API. Tokens are never mutated in place, only replaced.
type OAuthToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Usable reports whether the token can still be presented upstream at the
// given instant, honoring the expiry skew.
func (t OAuthToken) Usable(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-TokenExpirySkew))
}

// TokenProvider produces a currently-valid bearer token, hiding whichever
// OAuth exchange flow is configured. A failed exchange returns an error the
// caller must treat as "skip the dependent operation this cycle", never as
// fatal. The device flow additionally returns ErrAuthorizationPending while
// waiting for human approval.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}
