package categories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/users"
)

// RepositoryPort defines data access methods for categories and grants.
type RepositoryPort interface {
	AccessStore
	Insert(ctx context.Context, c Category) error
	List(ctx context.Context) ([]Category, error)
	SetPrivacy(ctx context.Context, id uuid.UUID, isPrivate bool) error
	SetLock(ctx context.Context, id uuid.UUID, isLocked bool) error
	UpsertGrant(ctx context.Context, p Permission) error
	DeleteGrant(ctx context.Context, userID, categoryID uuid.UUID) error
	GrantsForUser(ctx context.Context, userID uuid.UUID) ([]Permission, error)
	GrantsForCategory(ctx context.Context, categoryID uuid.UUID) ([]Permission, error)
}

// UserDirectory is the slice of the users package the service needs.
type UserDirectory interface {
	ByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Service handles category administration: creation, privacy and lock
// toggles, and per-user grant management. All mutations are admin actions,
// gated at the route.
type Service struct {
	repo  RepositoryPort
	users UserDirectory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, directory UserDirectory) *Service {
	return &Service{repo: repo, users: directory}
}

// Create inserts a new category.
func (s *Service) Create(ctx context.Context, name string, isPrivate, isLocked bool) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name required: %w", httpx.ErrValidation)
	}
	category := Category{
		ID:        uuid.New(),
		Name:      name,
		IsPrivate: isPrivate,
		IsLocked:  isLocked,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, category); err != nil {
		return nil, err
	}
	return &category, nil
}

// List returns all categories.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

// Get fetches a category by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.ByID(ctx, id)
}

// SetPrivacy toggles the privacy flag.
func (s *Service) SetPrivacy(ctx context.Context, id uuid.UUID, isPrivate bool) (*Category, error) {
	if err := s.repo.SetPrivacy(ctx, id, isPrivate); err != nil {
		return nil, err
	}
	return s.repo.ByID(ctx, id)
}

// SetLock toggles the lock flag.
func (s *Service) SetLock(ctx context.Context, id uuid.UUID, isLocked bool) (*Category, error) {
	if err := s.repo.SetLock(ctx, id, isLocked); err != nil {
		return nil, err
	}
	return s.repo.ByID(ctx, id)
}

// Grant creates or updates the single grant for the (user, category) pair.
func (s *Service) Grant(ctx context.Context, userID, categoryID uuid.UUID, level AccessLevel) (*Permission, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("unknown access level %q: %w", level, httpx.ErrValidation)
	}
	if _, err := s.users.ByID(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.repo.ByID(ctx, categoryID); err != nil {
		return nil, err
	}
	grant := Permission{UserID: userID, CategoryID: categoryID, AccessLevel: level}
	if err := s.repo.UpsertGrant(ctx, grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// RevokeGrant deletes the grant for the pair.
func (s *Service) RevokeGrant(ctx context.Context, userID, categoryID uuid.UUID) error {
	if _, err := s.users.ByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.repo.ByID(ctx, categoryID); err != nil {
		return err
	}
	return s.repo.DeleteGrant(ctx, userID, categoryID)
}

// PrivilegedUsers lists the grants within a private category.
func (s *Service) PrivilegedUsers(ctx context.Context, categoryID uuid.UUID) ([]Permission, error) {
	category, err := s.repo.ByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !category.IsPrivate {
		return nil, fmt.Errorf("category is not private: %w", httpx.ErrValidation)
	}
	return s.repo.GrantsForCategory(ctx, categoryID)
}

// GrantsFor lists every grant held by the user.
func (s *Service) GrantsFor(ctx context.Context, userID uuid.UUID) ([]Permission, error) {
	if _, err := s.users.ByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GrantsForUser(ctx, userID)
}
