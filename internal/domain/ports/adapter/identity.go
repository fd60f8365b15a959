package adapter

import "context"

// IdentityProvider is the optional external fallback for resolving an email
// to an internal user id when the local store has no match.
type IdentityProvider interface {
	Name() string
	// FindUserIDByEmail returns domain.ErrNotFound when the provider has no
	// account for the email.
	FindUserIDByEmail(ctx context.Context, email string) (string, error)
}
