package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"photobooth-reconcile/internal/domain/model"
	"photobooth-reconcile/internal/domain/ports/repository"
)

var _ repository.GrantRepository = (*PostgresGrantRepo)(nil)

type PostgresGrantRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresGrantRepo(pool *pgxpool.Pool) *PostgresGrantRepo {
	return &PostgresGrantRepo{pool: pool}
}

// HasActiveGrantFor is the idempotency check: an active, unexpired grant
// referencing the transaction means reconciliation already ran for it.
func (r *PostgresGrantRepo) HasActiveGrantFor(ctx context.Context, transactionID string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM access_grants
   WHERE transaction_id = $1
     AND is_active = TRUE
     AND access_end > NOW()
);`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, transactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("HasActiveGrantFor: %w", err)
	}
	return exists, nil
}

func (r *PostgresGrantRepo) ActivePackages(ctx context.Context) ([]*model.Package, error) {
	const q = `
SELECT id, name, is_active
  FROM packages
 WHERE is_active = TRUE
 ORDER BY sort_order ASC, id ASC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ActivePackages: %w", err)
	}
	defer rows.Close()

	var out []*model.Package
	for rows.Next() {
		var p model.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PostgresGrantRepo) CreateGrant(ctx context.Context, g *model.AccessGrant) error {
	const q = `
INSERT INTO access_grants (id, user_id, transaction_id, package_ids, start_date, access_end, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := r.pool.Exec(ctx, q,
		g.ID, g.UserID, g.TransactionID, g.PackageIDs,
		g.StartDate, g.AccessEnd, g.IsActive, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateGrant: %w", err)
	}
	return nil
}
