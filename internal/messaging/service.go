package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/notify"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
	"github.com/forumhq/forumhq/internal/users"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	ConversationForPair(ctx context.Context, a, b uuid.UUID) (*Conversation, error)
	InsertConversation(ctx context.Context, c Conversation) error
	ConversationByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ConversationsFor(ctx context.Context, userID uuid.UUID) ([]Conversation, error)
	InsertMessage(ctx context.Context, m Message) error
	MessagesIn(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
}

// UserDirectory verifies that a receiver exists.
type UserDirectory interface {
	ByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Notifier enqueues a push for the receiver. Delivery is best effort and
// never blocks message persistence.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, event notify.Event) error
}

type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	users    UserDirectory
	notifier Notifier
}

func NewService(logger *slog.Logger, repo RepositoryPort, directory UserDirectory, notifier Notifier) *Service {
	return &Service{logger: logger, repo: repo, users: directory, notifier: notifier}
}

// Send stores a direct message, creating the pair's conversation on first
// contact, and enqueues a notification for the receiver. A failed enqueue
// is logged and swallowed; the message is already durable at that point.
func (s *Service) Send(ctx context.Context, ident shared.Identity, receiverID uuid.UUID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", httpx.ErrValidation)
	}
	if receiverID == ident.UserID {
		return nil, fmt.Errorf("cannot message yourself: %w", httpx.ErrValidation)
	}
	if _, err := s.users.ByID(ctx, receiverID); err != nil {
		return nil, err
	}
	conversation, err := s.repo.ConversationForPair(ctx, ident.UserID, receiverID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		conversation = &Conversation{
			ID:        uuid.New(),
			UserAID:   ident.UserID,
			UserBID:   receiverID,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.InsertConversation(ctx, *conversation); err != nil {
			return nil, err
		}
	}
	message := Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		SenderID:       ident.UserID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, message); err != nil {
		return nil, err
	}
	event := notify.Event{
		Type:           notify.EventNewMessage,
		ConversationID: conversation.ID,
		SenderID:       ident.UserID,
		Body:           content,
	}
	if err := s.notifier.NotifyUser(ctx, receiverID, event); err != nil {
		s.logger.Warn("notify enqueue failed",
			slog.String("receiver_id", receiverID.String()),
			slog.Any("error", err),
		)
	}
	return &message, nil
}

// ConversationsFor lists the caller's conversations, newest first.
func (s *Service) ConversationsFor(ctx context.Context, ident shared.Identity) ([]Conversation, error) {
	return s.repo.ConversationsFor(ctx, ident.UserID)
}

// PartnersFor returns the distinct set of users the caller has
// conversations with.
func (s *Service) PartnersFor(ctx context.Context, ident shared.Identity) ([]uuid.UUID, error) {
	conversations, err := s.repo.ConversationsFor(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(conversations))
	out := make([]uuid.UUID, 0, len(conversations))
	for _, c := range conversations {
		partner := c.Partner(ident.UserID)
		if _, ok := seen[partner]; ok {
			continue
		}
		seen[partner] = struct{}{}
		out = append(out, partner)
	}
	return out, nil
}

// MessagesIn returns a conversation's messages, oldest first. Only a
// participant may read them.
func (s *Service) MessagesIn(ctx context.Context, ident shared.Identity, conversationID uuid.UUID) ([]Message, error) {
	conversation, err := s.repo.ConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.Includes(ident.UserID) {
		return nil, fmt.Errorf("unauthorized: %w", httpx.ErrForbidden)
	}
	return s.repo.MessagesIn(ctx, conversationID)
}
