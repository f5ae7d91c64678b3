package topics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forumhq/forumhq/internal/platform/httpx"
)

const topicColumns = "id, title, content, author_id, category_id, is_locked, best_reply_id, created_at"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, t Topic) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO topics (id, title, content, author_id, category_id, is_locked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Title, t.Content, t.AuthorID, t.CategoryID, t.IsLocked, t.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("topic title taken: %w", httpx.ErrConflict)
	}
	return err
}

func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*Topic, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+topicColumns+" FROM topics WHERE id = $1", id)
	return scanTopic(row)
}

func (r *Repository) TitleExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM topics WHERE title = $1)", title,
	).Scan(&exists)
	return exists, err
}

func (r *Repository) Update(ctx context.Context, t Topic) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE topics SET title = $2, content = $3, category_id = $4 WHERE id = $1`,
		t.ID, t.Title, t.Content, t.CategoryID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("topic title taken: %w", httpx.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic %s: %w", t.ID, httpx.ErrNotFound)
	}
	return nil
}

func (r *Repository) SetLock(ctx context.Context, id uuid.UUID, locked bool) error {
	tag, err := r.pool.Exec(ctx, "UPDATE topics SET is_locked = $2 WHERE id = $1", id, locked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic %s: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (r *Repository) SetBestReply(ctx context.Context, topicID, replyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "UPDATE topics SET best_reply_id = $2 WHERE id = $1", topicID, replyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic %s: %w", topicID, httpx.ErrNotFound)
	}
	return nil
}

// ListVisible returns topics in categories the user may read. Private
// categories are included only for admins, authors, or grant holders.
func (r *Repository) ListVisible(ctx context.Context, userID uuid.UUID, isAdmin bool, f Filter) ([]Topic, error) {
	f = f.Normalize()
	query := fmt.Sprintf(`
		SELECT %s
		FROM topics t
		JOIN categories c ON c.id = t.category_id
		WHERE $2
		   OR NOT c.is_private
		   OR t.author_id = $1
		   OR EXISTS (
			SELECT 1 FROM category_permissions p
			WHERE p.user_id = $1 AND p.category_id = c.id
		   )
		ORDER BY t.%s %s
		LIMIT $3 OFFSET $4`,
		prefixColumns("t"), f.OrderBy, f.Order,
	)
	rows, err := r.pool.Query(ctx, query, userID, isAdmin, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	return collectTopics(rows)
}

// ListPublic returns topics in non-private categories without requiring a
// caller identity.
func (r *Repository) ListPublic(ctx context.Context, f Filter) ([]Topic, error) {
	f = f.Normalize()
	query := fmt.Sprintf(`
		SELECT %s
		FROM topics t
		JOIN categories c ON c.id = t.category_id
		WHERE NOT c.is_private
		ORDER BY t.%s %s
		LIMIT $1 OFFSET $2`,
		prefixColumns("t"), f.OrderBy, f.Order,
	)
	rows, err := r.pool.Query(ctx, query, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	return collectTopics(rows)
}

func (r *Repository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]Topic, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+topicColumns+" FROM topics WHERE category_id = $1 ORDER BY created_at DESC",
		categoryID,
	)
	if err != nil {
		return nil, err
	}
	return collectTopics(rows)
}

func prefixColumns(alias string) string {
	return alias + ".id, " + alias + ".title, " + alias + ".content, " + alias + ".author_id, " +
		alias + ".category_id, " + alias + ".is_locked, " + alias + ".best_reply_id, " + alias + ".created_at"
}

func scanTopic(row pgx.Row) (*Topic, error) {
	var t Topic
	err := row.Scan(&t.ID, &t.Title, &t.Content, &t.AuthorID, &t.CategoryID, &t.IsLocked, &t.BestReplyID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("topic: %w", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTopics(rows pgx.Rows) ([]Topic, error) {
	defer rows.Close()
	var out []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.AuthorID, &t.CategoryID, &t.IsLocked, &t.BestReplyID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
