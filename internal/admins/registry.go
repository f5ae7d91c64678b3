// Package admins answers the single question of whether a user holds the
// admin role. Both token issuance and permission resolution consult it.
package admins

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Registry reports admin membership for a user.
type Registry interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Repository provides PostgreSQL backed membership lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IsAdmin reports whether the user appears in the admins table.
func (r *Repository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Grant inserts the user into the admins table. Idempotent.
func (r *Repository) Grant(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}
