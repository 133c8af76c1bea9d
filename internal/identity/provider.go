// Package identity verifies bearer tokens against the external identity
// provider. The service never authenticates users itself; it only maps an
// already-issued token to the provider's subject and email.
package identity

import (
	"context"
	"errors"
)

// Identity is what the provider vouches for on a verified token.
type Identity struct {
	Subject string
	Email   string
}

type Provider interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrUnavailable  = errors.New("identity_provider_unavailable")
)
