package repository

import (
	"context"

	"photobooth-reconcile/internal/domain/model"
)

// GrantRepository is the persistence port for access grants and the
// package catalog.
type GrantRepository interface {
	// HasActiveGrantFor reports whether an active, unexpired grant already
	// references transactionID. This is the idempotency check before any
	// grant write.
	HasActiveGrantFor(ctx context.Context, transactionID string) (bool, error)

	// ActivePackages returns the currently sellable packages in catalog order.
	ActivePackages(ctx context.Context) ([]*model.Package, error)

	CreateGrant(ctx context.Context, g *model.AccessGrant) error
}
