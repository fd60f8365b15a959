package repository

import (
	"context"
	"time"

	"photobooth-reconcile/internal/domain/model"
)

// TransactionRepository is the persistence port for payment transactions.
type TransactionRepository interface {
	// FindSettlementCandidates returns transactions that look settled (or
	// pending when includePending is set), whose effective time is >= since,
	// and that have no currently active access grant. Results are ordered
	// ascending by effective time so a capped run drains the oldest backlog
	// first. Read-only.
	FindSettlementCandidates(ctx context.Context, since time.Time, limit int, includePending bool) ([]*model.Transaction, error)

	// FindByOrderID returns domain.ErrNotFound when no row matches.
	FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error)

	// UpdateStatus persists a confirmed status change. paidAt, when non-nil,
	// is only filled in if the row has no paid_at yet; it is never cleared.
	UpdateStatus(ctx context.Context, id string, status model.Status, rawStatus string, paidAt *time.Time, gatewayResponse map[string]interface{}) error

	// Create persists a transaction synthesized from a gateway confirmation
	// (the batch-ingestion backfill path).
	Create(ctx context.Context, t *model.Transaction) error
}
