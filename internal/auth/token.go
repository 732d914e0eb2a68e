// Package auth supplies bearer tokens to the REST client.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
)

// TokenSource returns the bearer token for the next request. An empty token
// means the request is sent without an Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken serves a token obtained by the external login flow. JWTs are
// inspected (not verified) so an expired token fails fast instead of costing a
// round trip; opaque tokens are passed through untouched.
type StaticToken struct {
	token string
	now   func() time.Time
}

// NewStaticToken creates a StaticToken for tok.
func NewStaticToken(tok string) *StaticToken {
	return &StaticToken{token: tok, now: time.Now}
}

func (s *StaticToken) Token(ctx context.Context) (string, error) {
	if s == nil || s.token == "" {
		return "", nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.token, claims); err != nil {
		return s.token, nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", fmt.Errorf("access token: %w: %v", apperr.ErrUnauthenticated, err)
	}
	if exp != nil && !exp.After(s.now()) {
		return "", fmt.Errorf("access token expired at %s: %w", exp.Format(time.RFC3339), apperr.ErrUnauthenticated)
	}
	return s.token, nil
}
