package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) FindIDByEmail(ctx context.Context, email string) (string, error) {
	const q = `SELECT id FROM users WHERE LOWER(email) = $1 LIMIT 1;`
	var id string
	if err := r.pool.QueryRow(ctx, q, strings.ToLower(email)).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("FindIDByEmail: %w", err)
	}
	return id, nil
}
