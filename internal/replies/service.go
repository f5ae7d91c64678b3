package replies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/categories"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
	"github.com/forumhq/forumhq/internal/topics"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Insert(ctx context.Context, reply Reply) error
	ByID(ctx context.Context, id uuid.UUID) (*Reply, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	ListByTopic(ctx context.Context, topicID uuid.UUID) ([]Reply, error)
	ToggleReaction(ctx context.Context, reaction Reaction) error
	Counts(ctx context.Context, replyID uuid.UUID) (VoteCounts, error)
	CountsByTopic(ctx context.Context, topicID uuid.UUID) (map[uuid.UUID]VoteCounts, error)
}

// TopicDirectory is the read-gated topic lookup. A denial or missing topic
// surfaces from here before any reply state is touched.
type TopicDirectory interface {
	Get(ctx context.Context, ident shared.Identity, topicID uuid.UUID) (*topics.Topic, error)
}

type Service struct {
	repo     RepositoryPort
	topics   TopicDirectory
	resolver *categories.Resolver
}

func NewService(repo RepositoryPort, directory TopicDirectory, resolver *categories.Resolver) *Service {
	return &Service{repo: repo, topics: directory, resolver: resolver}
}

// Create posts a reply into a topic. The topic must be readable, unlocked
// unless the caller is an admin, and its category writable by the caller.
func (s *Service) Create(ctx context.Context, ident shared.Identity, topicID uuid.UUID, content string) (*WithVotes, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", httpx.ErrValidation)
	}
	topic, err := s.topics.Get(ctx, ident, topicID)
	if err != nil {
		return nil, err
	}
	if topic.IsLocked && !ident.IsAdmin {
		return nil, fmt.Errorf("topic is locked: %w", httpx.ErrForbidden)
	}
	ok, _, err := s.resolver.CanWriteCategory(ctx, ident.UserID, topic.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cannot post in this category: %w", httpx.ErrForbidden)
	}
	reply := Reply{
		ID:        uuid.New(),
		Content:   content,
		AuthorID:  ident.UserID,
		TopicID:   topicID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, reply); err != nil {
		return nil, err
	}
	return &WithVotes{Reply: reply}, nil
}

// Get returns a reply with its tally after the read gate of its topic.
func (s *Service) Get(ctx context.Context, ident shared.Identity, replyID uuid.UUID) (*WithVotes, error) {
	reply, err := s.repo.ByID(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.topics.Get(ctx, ident, reply.TopicID); err != nil {
		return nil, err
	}
	counts, err := s.repo.Counts(ctx, replyID)
	if err != nil {
		return nil, err
	}
	return &WithVotes{Reply: *reply, Votes: counts}, nil
}

// Update edits a reply's content. The parent topic must still be readable
// by the caller, and only the author may edit; admins get no bypass here.
func (s *Service) Update(ctx context.Context, ident shared.Identity, replyID uuid.UUID, content string) (*WithVotes, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", httpx.ErrValidation)
	}
	reply, err := s.repo.ByID(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.topics.Get(ctx, ident, reply.TopicID); err != nil {
		return nil, err
	}
	if reply.AuthorID != ident.UserID {
		return nil, fmt.Errorf("unauthorized: %w", httpx.ErrForbidden)
	}
	if reply.Content != content {
		if err := s.repo.UpdateContent(ctx, replyID, content); err != nil {
			return nil, err
		}
		reply.Content = content
	}
	counts, err := s.repo.Counts(ctx, replyID)
	if err != nil {
		return nil, err
	}
	return &WithVotes{Reply: *reply, Votes: counts}, nil
}

// Vote toggles the caller's reaction on a reply: a repeat of the same
// polarity removes the vote, the opposite polarity flips it, and no prior
// vote creates one. The toggle is one atomic read-modify-write in storage;
// counts in the result reflect it.
func (s *Service) Vote(ctx context.Context, ident shared.Identity, replyID uuid.UUID, positive bool) (*WithVotes, error) {
	reply, err := s.repo.ByID(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.topics.Get(ctx, ident, reply.TopicID); err != nil {
		return nil, err
	}
	if err := s.repo.ToggleReaction(ctx, Reaction{UserID: ident.UserID, ReplyID: replyID, Positive: positive}); err != nil {
		return nil, err
	}
	counts, err := s.repo.Counts(ctx, replyID)
	if err != nil {
		return nil, err
	}
	return &WithVotes{Reply: *reply, Votes: counts}, nil
}

// ListByTopic returns the topic's replies with tallies, oldest first. The
// topic read gate applies once for the whole listing.
func (s *Service) ListByTopic(ctx context.Context, ident shared.Identity, topicID uuid.UUID) ([]WithVotes, error) {
	if _, err := s.topics.Get(ctx, ident, topicID); err != nil {
		return nil, err
	}
	all, err := s.repo.ListByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountsByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	out := make([]WithVotes, len(all))
	for i, reply := range all {
		out[i] = WithVotes{Reply: reply, Votes: counts[reply.ID]}
	}
	return out, nil
}
