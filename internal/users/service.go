package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/forumhq/forumhq/internal/platform/httpx"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Insert(ctx context.Context, u User) error
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateTokenVersion(ctx context.Context, id, version uuid.UUID) error
}

// Service handles user account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a new account. Username and email must be unique.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := s.ensureUnique(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	user := User{
		ID:           uuid.New(),
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
		TokenVersion: uuid.New(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ByID returns the user with the given id.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.ByID(ctx, id)
}

// ByUsername returns the user with the given username.
func (s *Service) ByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.ByUsername(ctx, username)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) ensureUnique(ctx context.Context, username, email string) error {
	if _, err := s.repo.ByUsername(ctx, username); err == nil {
		return fmt.Errorf("username already exists: %w", httpx.ErrConflict)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return err
	}
	if _, err := s.repo.ByEmail(ctx, email); err == nil {
		return fmt.Errorf("email already exists: %w", httpx.ErrConflict)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return err
	}
	return nil
}
