package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/model"
	"photobooth-reconcile/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*PostgresTransactionRepo)(nil)

type PostgresTransactionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTransactionRepo(pool *pgxpool.Pool) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{pool: pool}
}

const txColumns = `id, external_order_id, user_id, status, raw_status, gross_amount, created_at, paid_at, gateway_response`

// FindSettlementCandidates selects transactions needing reconciliation:
// settlement-like (or pending, when includePending) with no currently
// active grant. "No grant row", "grant inactive" and "grant expired" are
// all the same thing here, hence the outer join. Oldest effective time
// first so capped runs drain the backlog.
func (r *PostgresTransactionRepo) FindSettlementCandidates(ctx context.Context, since time.Time, limit int, includePending bool) ([]*model.Transaction, error) {
	const q = `
SELECT t.id, t.external_order_id, t.user_id, t.status, t.raw_status, t.gross_amount, t.created_at, t.paid_at, t.gateway_response
  FROM transactions t
  LEFT JOIN access_grants g
         ON g.transaction_id = t.id
        AND g.is_active = TRUE
        AND g.access_end > NOW()
 WHERE g.id IS NULL
   AND COALESCE(t.paid_at, t.created_at) >= $1
   AND (
        t.status = $3
     OR LOWER(TRIM(t.raw_status)) = ANY($4)
     OR ($5 AND t.status = $6)
   )
 ORDER BY COALESCE(t.paid_at, t.created_at) ASC
 LIMIT $2;`

	rows, err := r.pool.Query(ctx, q,
		since, limit,
		model.StatusSettled, model.SettledLikeVocabulary(),
		includePending, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("FindSettlementCandidates: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresTransactionRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM transactions WHERE external_order_id = $1;`
	t, err := scanTransaction(r.pool.QueryRow(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByOrderID: %w", err)
	}
	return t, nil
}

// UpdateStatus persists a confirmed status change. paid_at is only filled
// in when still null, so a settlement time is recorded at most once.
func (r *PostgresTransactionRepo) UpdateStatus(ctx context.Context, id string, status model.Status, rawStatus string, paidAt *time.Time, gatewayResponse map[string]interface{}) error {
	const q = `
UPDATE transactions
   SET status = $2,
       raw_status = $3,
       paid_at = COALESCE(paid_at, $4),
       gateway_response = COALESCE($5, gateway_response)
 WHERE id = $1;`
	tag, err := r.pool.Exec(ctx, q, id, status, rawStatus, paidAt, gatewayResponse)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresTransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (` + txColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	_, err := r.pool.Exec(ctx, q,
		t.ID, t.ExternalOrderID, t.UserID, t.Status, t.RawStatus,
		t.GrossAmount, t.CreatedAt, t.PaidAt, t.GatewayResponse,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// external_order_id is unique; the webhook path won the race.
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("Create transaction: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	if err := row.Scan(
		&t.ID, &t.ExternalOrderID, &t.UserID, &t.Status, &t.RawStatus,
		&t.GrossAmount, &t.CreatedAt, &t.PaidAt, &t.GatewayResponse,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
