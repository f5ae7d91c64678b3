package topics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/categories"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Insert(ctx context.Context, t Topic) error
	ByID(ctx context.Context, id uuid.UUID) (*Topic, error)
	TitleExists(ctx context.Context, title string) (bool, error)
	Update(ctx context.Context, t Topic) error
	SetLock(ctx context.Context, id uuid.UUID, locked bool) error
	SetBestReply(ctx context.Context, topicID, replyID uuid.UUID) error
	ListVisible(ctx context.Context, userID uuid.UUID, isAdmin bool, f Filter) ([]Topic, error)
	ListPublic(ctx context.Context, f Filter) ([]Topic, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]Topic, error)
}

// ReplyDirectory resolves a reply to its topic so the best reply selection
// can check the reply is readable without owning reply storage.
type ReplyDirectory interface {
	Reference(ctx context.Context, replyID uuid.UUID) (uuid.UUID, error)
}

type Service struct {
	repo     RepositoryPort
	resolver *categories.Resolver
	replies  ReplyDirectory
}

func NewService(repo RepositoryPort, resolver *categories.Resolver, replies ReplyDirectory) *Service {
	return &Service{repo: repo, resolver: resolver, replies: replies}
}

// CreateInput carries the caller-supplied fields for a new topic.
type CreateInput struct {
	Title      string
	Content    string
	CategoryID uuid.UUID
}

// Create posts a topic into a category the caller can write to. Titles are
// globally unique across all categories.
func (s *Service) Create(ctx context.Context, ident shared.Identity, in CreateInput) (*Topic, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("title is required: %w", httpx.ErrValidation)
	}
	ok, _, err := s.resolver.CanWriteCategory(ctx, ident.UserID, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cannot post in this category: %w", httpx.ErrForbidden)
	}
	taken, err := s.repo.TitleExists(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("topic with this title already exists: %w", httpx.ErrConflict)
	}
	topic := Topic{
		ID:         uuid.New(),
		Title:      in.Title,
		Content:    in.Content,
		AuthorID:   ident.UserID,
		CategoryID: in.CategoryID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// Get returns the topic after the read gate: a topic in a private category
// is visible only to grant holders, its author, or admins. Existence is
// checked before access, so a missing topic is a 404 even for strangers.
func (s *Service) Get(ctx context.Context, ident shared.Identity, topicID uuid.UUID) (*Topic, error) {
	topic, err := s.repo.ByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if ident.IsAdmin {
		return topic, nil
	}
	ok, _, err := s.resolver.CanReadCategory(ctx, ident.UserID, topic.AuthorID, topic.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("unauthorized: %w", httpx.ErrForbidden)
	}
	return topic, nil
}

// List returns topics visible to the caller, private categories filtered
// down to grants, authorship, or admin.
func (s *Service) List(ctx context.Context, ident shared.Identity, f Filter) ([]Topic, error) {
	return s.repo.ListVisible(ctx, ident.UserID, ident.IsAdmin, f)
}

// ListPublic returns topics in public categories. It backs the
// unauthenticated listing endpoint.
func (s *Service) ListPublic(ctx context.Context, f Filter) ([]Topic, error) {
	return s.repo.ListPublic(ctx, f)
}

// ListByCategory returns every topic in one category, provided the caller
// may read the category at all.
func (s *Service) ListByCategory(ctx context.Context, ident shared.Identity, categoryID uuid.UUID) ([]Topic, error) {
	ok, _, err := s.resolver.CanReadCategory(ctx, ident.UserID, uuid.Nil, categoryID)
	if err != nil {
		return nil, err
	}
	if !ok && !ident.IsAdmin {
		return nil, fmt.Errorf("unauthorized: %w", httpx.ErrForbidden)
	}
	return s.repo.ListByCategory(ctx, categoryID)
}

// UpdatePatch holds optional new values; nil fields are left untouched.
type UpdatePatch struct {
	Title      *string
	Content    *string
	CategoryID *uuid.UUID
}

// Update edits a topic. The caller must be the author or an admin, the
// topic must be unlocked unless the caller is an admin, and the caller must
// hold write permission on the category the topic will live in afterwards.
// Only supplied fields that actually differ are persisted.
func (s *Service) Update(ctx context.Context, ident shared.Identity, topicID uuid.UUID, patch UpdatePatch) (*Topic, error) {
	topic, err := s.validateTopicAccess(ctx, ident, topicID)
	if err != nil {
		return nil, err
	}
	target := topic.CategoryID
	if patch.CategoryID != nil {
		target = *patch.CategoryID
	}
	ok, _, err := s.resolver.CanWriteCategory(ctx, ident.UserID, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cannot post in this category: %w", httpx.ErrForbidden)
	}

	changed := false
	if patch.Title != nil && *patch.Title != topic.Title {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("title is required: %w", httpx.ErrValidation)
		}
		taken, err := s.repo.TitleExists(ctx, title)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("topic with this title already exists: %w", httpx.ErrConflict)
		}
		topic.Title = title
		changed = true
	}
	if patch.Content != nil && *patch.Content != topic.Content {
		topic.Content = *patch.Content
		changed = true
	}
	if patch.CategoryID != nil && *patch.CategoryID != topic.CategoryID {
		topic.CategoryID = *patch.CategoryID
		changed = true
	}
	if !changed {
		return topic, nil
	}
	if err := s.repo.Update(ctx, *topic); err != nil {
		return nil, err
	}
	return topic, nil
}

// Lock flips the topic lock flag. Route-level gating restricts this to
// admins.
func (s *Service) Lock(ctx context.Context, topicID uuid.UUID, locked bool) (*Topic, error) {
	if err := s.repo.SetLock(ctx, topicID, locked); err != nil {
		return nil, err
	}
	return s.repo.ByID(ctx, topicID)
}

// SelectBestReply marks a reply as the topic's accepted answer. The caller
// must be the topic author or an admin, the topic must be unlocked unless
// the caller is an admin, and the reply must exist and be readable. The
// reply is not required to belong to the topic being updated.
func (s *Service) SelectBestReply(ctx context.Context, ident shared.Identity, topicID, replyID uuid.UUID) (*Topic, error) {
	topic, err := s.validateTopicAccess(ctx, ident, topicID)
	if err != nil {
		return nil, err
	}
	replyTopicID, err := s.replies.Reference(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if !ident.IsAdmin {
		replyTopic, err := s.repo.ByID(ctx, replyTopicID)
		if err != nil {
			return nil, err
		}
		ok, _, err := s.resolver.CanReadCategory(ctx, ident.UserID, replyTopic.AuthorID, replyTopic.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("unauthorized: %w", httpx.ErrForbidden)
		}
	}
	if err := s.repo.SetBestReply(ctx, topicID, replyID); err != nil {
		return nil, err
	}
	topic.BestReplyID = &replyID
	return topic, nil
}

// validateTopicAccess loads the topic and enforces the shared mutation
// gate: author or admin, and unlocked unless admin. The lock denial keeps
// its own message so clients can tell the two refusals apart.
func (s *Service) validateTopicAccess(ctx context.Context, ident shared.Identity, topicID uuid.UUID) (*Topic, error) {
	topic, err := s.repo.ByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic.AuthorID != ident.UserID && !ident.IsAdmin {
		return nil, fmt.Errorf("unauthorized: %w", httpx.ErrForbidden)
	}
	if topic.IsLocked && !ident.IsAdmin {
		return nil, fmt.Errorf("topic is locked: %w", httpx.ErrForbidden)
	}
	return topic, nil
}
