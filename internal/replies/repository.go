package replies

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forumhq/forumhq/internal/platform/db"
	"github.com/forumhq/forumhq/internal/platform/httpx"
)

const replyColumns = "id, content, author_id, topic_id, created_at"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, reply Reply) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO replies (id, content, author_id, topic_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		reply.ID, reply.Content, reply.AuthorID, reply.TopicID, reply.CreatedAt,
	)
	return err
}

func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*Reply, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+replyColumns+" FROM replies WHERE id = $1", id)
	var reply Reply
	err := row.Scan(&reply.ID, &reply.Content, &reply.AuthorID, &reply.TopicID, &reply.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reply: %w", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// Reference resolves a reply to its topic without loading the body. It
// backs the best reply selection in the topics package.
func (r *Repository) Reference(ctx context.Context, replyID uuid.UUID) (uuid.UUID, error) {
	var topicID uuid.UUID
	err := r.pool.QueryRow(ctx,
		"SELECT topic_id FROM replies WHERE id = $1", replyID,
	).Scan(&topicID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("reply: %w", httpx.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return topicID, nil
}

func (r *Repository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	tag, err := r.pool.Exec(ctx, "UPDATE replies SET content = $2 WHERE id = $1", id, content)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reply %s: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]Reply, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+replyColumns+" FROM replies WHERE topic_id = $1 ORDER BY created_at ASC",
		topicID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reply
	for rows.Next() {
		var reply Reply
		if err := rows.Scan(&reply.ID, &reply.Content, &reply.AuthorID, &reply.TopicID, &reply.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, reply)
	}
	return out, rows.Err()
}

// ToggleReaction applies one vote as a single read-modify-write
// transaction. The caller's reaction row is locked for the duration, so
// concurrent votes on the same pair serialize instead of racing; the
// insert upserts in case no row existed to lock.
func (r *Repository) ToggleReaction(ctx context.Context, reaction Reaction) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var existing *Reaction
		var current Reaction
		err := tx.QueryRow(ctx,
			"SELECT user_id, reply_id, positive FROM reply_reactions WHERE user_id = $1 AND reply_id = $2 FOR UPDATE",
			reaction.UserID, reaction.ReplyID,
		).Scan(&current.UserID, &current.ReplyID, &current.Positive)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if err == nil {
			existing = &current
		}
		switch resolveToggle(existing, reaction.Positive) {
		case toggleRemove:
			_, err = tx.Exec(ctx,
				"DELETE FROM reply_reactions WHERE user_id = $1 AND reply_id = $2",
				reaction.UserID, reaction.ReplyID,
			)
		case toggleFlip:
			_, err = tx.Exec(ctx,
				"UPDATE reply_reactions SET positive = $3 WHERE user_id = $1 AND reply_id = $2",
				reaction.UserID, reaction.ReplyID, reaction.Positive,
			)
		default:
			_, err = tx.Exec(ctx, `
				INSERT INTO reply_reactions (user_id, reply_id, positive)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, reply_id) DO UPDATE SET positive = EXCLUDED.positive`,
				reaction.UserID, reaction.ReplyID, reaction.Positive,
			)
		}
		return err
	})
}

func (r *Repository) Counts(ctx context.Context, replyID uuid.UUID) (VoteCounts, error) {
	var counts VoteCounts
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE positive), COUNT(*) FILTER (WHERE NOT positive)
		FROM reply_reactions WHERE reply_id = $1`,
		replyID,
	).Scan(&counts.Upvotes, &counts.Downvotes)
	return counts, err
}

// CountsByTopic tallies reactions for every reply in the topic in one
// query.
func (r *Repository) CountsByTopic(ctx context.Context, topicID uuid.UUID) (map[uuid.UUID]VoteCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.reply_id,
		       COUNT(*) FILTER (WHERE r.positive),
		       COUNT(*) FILTER (WHERE NOT r.positive)
		FROM reply_reactions r
		JOIN replies p ON p.id = r.reply_id
		WHERE p.topic_id = $1
		GROUP BY r.reply_id`,
		topicID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]VoteCounts)
	for rows.Next() {
		var id uuid.UUID
		var counts VoteCounts
		if err := rows.Scan(&id, &counts.Upvotes, &counts.Downvotes); err != nil {
			return nil, err
		}
		out[id] = counts
	}
	return out, rows.Err()
}
