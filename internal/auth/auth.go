// Package auth verifies bearer tokens issued by an external identity provider.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken covers malformed, expired and badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrProviderUnavailable means the token could not be checked at all.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Identity is the verified subject of a token.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}
