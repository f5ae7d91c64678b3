package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forumhq/forumhq/internal/platform/httpx"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ConversationForPair finds the thread between two users regardless of
// which side created it, or nil when none exists yet.
func (r *Repository) ConversationForPair(ctx context.Context, a, b uuid.UUID) (*Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_a_id, user_b_id, created_at FROM conversations
		WHERE (user_a_id = $1 AND user_b_id = $2)
		   OR (user_a_id = $2 AND user_b_id = $1)`,
		a, b,
	)
	var c Conversation
	err := row.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) InsertConversation(ctx context.Context, c Conversation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserAID, c.UserBID, c.CreatedAt,
	)
	return err
}

func (r *Repository) ConversationByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, user_a_id, user_b_id, created_at FROM conversations WHERE id = $1", id,
	)
	var c Conversation
	err := row.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation: %w", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ConversationsFor(ctx context.Context, userID uuid.UUID) ([]Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_a_id, user_b_id, created_at FROM conversations
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) InsertMessage(ctx context.Context, m Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt,
	)
	return err
}

func (r *Repository) MessagesIn(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
