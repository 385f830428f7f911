package api

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies bearer tokens for authenticated calls. Refresh is
// invoked at most once per request after the backend answers 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticTokenSource serves a fixed token pair from configuration. Refresh
// hands back the configured refresh token when one exists, otherwise the
// original token; the anonymous storefront mostly runs unauthenticated.
type StaticTokenSource struct {
	AccessToken  string
	RefreshToken string
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	return s.AccessToken, nil
}

func (s *StaticTokenSource) Refresh(ctx context.Context) (string, error) {
	if s.RefreshToken != "" {
		s.AccessToken = s.RefreshToken
	}
	return s.AccessToken, nil
}

// tokenExpiresWithin reports whether the bearer token is a JWT expiring inside
// the given window. Opaque tokens and tokens without an exp claim never report
// expiry; the 401 retry path covers those.
func tokenExpiresWithin(token string, window time.Duration, now time.Time) bool {
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return expiry.Time.Before(now.Add(window))
}
