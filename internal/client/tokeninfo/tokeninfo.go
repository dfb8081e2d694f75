// Package tokeninfo reads access-token claims for display. Signatures are
// not checked: the client never decides anything from these values.
package tokeninfo

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "efficore_token"
	TypeRefresh = "refresh_token"
)

var ErrNotJWT = errors.New("token is not a JWT")

// Claims is the boundary's token payload.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
}

// Info is the displayable part of a token.
type Info struct {
	Subject   string
	TokenType string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token had expired at now. Tokens without an
// expiry never expire.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Inspect decodes token without verifying it.
func Inspect(token string) (Info, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}

	info := Info{Subject: claims.Subject, TokenType: claims.TokenType}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}
