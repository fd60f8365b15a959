package repository

import "context"

// UserRepository resolves local users. Only the email lookup is needed by
// reconciliation; user CRUD lives with the main product.
type UserRepository interface {
	// FindIDByEmail returns the internal user id for a (lowercased) email,
	// or domain.ErrNotFound.
	FindIDByEmail(ctx context.Context, email string) (string, error)
}
