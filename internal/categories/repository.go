package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forumhq/forumhq/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for categories and grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new category.
func (r *Repository) Insert(ctx context.Context, c Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, name, is_private, is_locked, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.IsPrivate, c.IsLocked, c.CreatedAt)
	return err
}

// ByID fetches a category by id.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, is_private, is_locked, created_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.IsPrivate, &c.IsLocked, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category: %w", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// List returns all categories ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, is_private, is_locked, created_at FROM categories ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsPrivate, &c.IsLocked, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetPrivacy updates the privacy flag.
func (r *Repository) SetPrivacy(ctx context.Context, id uuid.UUID, isPrivate bool) error {
	return r.setFlag(ctx, `UPDATE categories SET is_private = $2 WHERE id = $1`, id, isPrivate)
}

// SetLock updates the lock flag.
func (r *Repository) SetLock(ctx context.Context, id uuid.UUID, isLocked bool) error {
	return r.setFlag(ctx, `UPDATE categories SET is_locked = $2 WHERE id = $1`, id, isLocked)
}

func (r *Repository) setFlag(ctx context.Context, query string, id uuid.UUID, value bool) error {
	tag, err := r.pool.Exec(ctx, query, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category: %w", httpx.ErrNotFound)
	}
	return nil
}

// GrantFor returns the single grant for the pair, or nil when absent.
// Absence of a grant is not an error.
func (r *Repository) GrantFor(ctx context.Context, userID, categoryID uuid.UUID) (*Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, category_id, access_level FROM category_permissions WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID,
	).Scan(&p.UserID, &p.CategoryID, &p.AccessLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpsertGrant creates or replaces the grant for the pair in one statement.
func (r *Repository) UpsertGrant(ctx context.Context, p Permission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO category_permissions (user_id, category_id, access_level) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, category_id) DO UPDATE SET access_level = EXCLUDED.access_level`,
		p.UserID, p.CategoryID, p.AccessLevel)
	return err
}

// DeleteGrant removes the grant for the pair.
func (r *Repository) DeleteGrant(ctx context.Context, userID, categoryID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM category_permissions WHERE user_id = $1 AND category_id = $2`, userID, categoryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("permission: %w", httpx.ErrNotFound)
	}
	return nil
}

// GrantsForUser returns every grant held by the user.
func (r *Repository) GrantsForUser(ctx context.Context, userID uuid.UUID) ([]Permission, error) {
	return r.grants(ctx,
		`SELECT user_id, category_id, access_level FROM category_permissions WHERE user_id = $1`, userID)
}

// GrantsForCategory returns every grant within the category.
func (r *Repository) GrantsForCategory(ctx context.Context, categoryID uuid.UUID) ([]Permission, error) {
	return r.grants(ctx,
		`SELECT user_id, category_id, access_level FROM category_permissions WHERE category_id = $1`, categoryID)
}

func (r *Repository) grants(ctx context.Context, query string, key uuid.UUID) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.UserID, &p.CategoryID, &p.AccessLevel); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
