// Package tokenstore is the client's credential store: the single holder of
// the current access/refresh token pair.
//
// Every backend replaces both tokens in one atomic write, so a request
// running concurrently never observes a torn pair. No token shape or expiry
// checks happen here; expiry is discovered by a failed request.
package tokenstore

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/facegate/internal/client/models"
)

// ErrEmptyAccess is returned by Set when the pair has no access token.
// Sessions are ended with Clear, never by writing an empty pair.
var ErrEmptyAccess = errors.New("token pair without access token")

// Store holds at most one session.
type Store interface {
	// Set replaces both tokens atomically.
	Set(ctx context.Context, tokens models.Tokens) error
	// Get returns the current pair; either field may be empty.
	Get(ctx context.Context) (models.Tokens, error)
	// Clear removes both tokens.
	Clear(ctx context.Context) error
	// HasAccess reports whether an access token is present. Storage errors
	// read as false.
	HasAccess(ctx context.Context) bool
}

func validate(tokens models.Tokens) error {
	if tokens.Access == "" {
		return ErrEmptyAccess
	}
	return nil
}
