package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/model"
	"photobooth-reconcile/internal/domain/ports/adapter"
	"photobooth-reconcile/internal/domain/ports/repository"
)

// IdentityResolver maps a candidate to an internal user id. Resolution
// order: an already internal-shaped id is accepted as-is, then the local
// user store by email, then the external identity provider when one is
// configured. Failure is reported, never fatal.
type IdentityResolver struct {
	users    repository.UserRepository
	provider adapter.IdentityProvider // optional
	log      *zerolog.Logger
}

func NewIdentityResolver(users repository.UserRepository, provider adapter.IdentityProvider, logger *zerolog.Logger) *IdentityResolver {
	l := logger.With().Str("component", "IdentityResolver").Logger()
	return &IdentityResolver{users: users, provider: provider, log: &l}
}

// Resolve returns the internal user id for a candidate, or a wrapped
// domain.ErrUserNotResolved.
func (r *IdentityResolver) Resolve(ctx context.Context, existingID *string, email string) (string, error) {
	if existingID != nil && model.IsInternalUserID(*existingID) {
		return *existingID, nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: no email to resolve by", domain.ErrUserNotResolved)
	}

	id, err := r.users.FindIDByEmail(ctx, email)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		r.log.Warn().Err(err).Str("email", email).Msg("local user lookup failed")
	}

	if r.provider != nil {
		id, err = r.provider.FindUserIDByEmail(ctx, email)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn().Err(err).Str("provider", r.provider.Name()).Str("email", email).Msg("identity provider lookup failed")
		}
	}

	return "", fmt.Errorf("%w: %s", domain.ErrUserNotResolved, email)
}
