package users

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/forumhq/forumhq/internal/platform/httpx"
)

type fakeRepo struct {
	byID       map[uuid.UUID]*User
	byUsername map[string]*User
	byEmail    map[string]*User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:       make(map[uuid.UUID]*User),
		byUsername: make(map[string]*User),
		byEmail:    make(map[string]*User),
	}
}

func (f *fakeRepo) Insert(ctx context.Context, u User) error {
	cp := u
	f.byID[u.ID] = &cp
	f.byUsername[u.Username] = &cp
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeRepo) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user: %w", httpx.ErrNotFound)
}

func (f *fakeRepo) ByUsername(ctx context.Context, username string) (*User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user: %w", httpx.ErrNotFound)
}

func (f *fakeRepo) ByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user: %w", httpx.ErrNotFound)
}

func (f *fakeRepo) List(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeRepo) UpdateTokenVersion(ctx context.Context, id, version uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("user: %w", httpx.ErrNotFound)
	}
	u.TokenVersion = version
	return nil
}

func TestRegisterHashesPasswordAndAssignsVersion(t *testing.T) {
	svc := NewService(newFakeRepo())

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", FirstName: "Alice", LastName: "Smith",
		Email: "alice@example.com", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.TokenVersion == uuid.Nil {
		t.Fatal("expected a token version to be assigned")
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", FirstName: "Alice", LastName: "Smith",
		Email: "alice@example.com", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "alice", FirstName: "Other", LastName: "Person",
		Email: "other@example.com", Password: "battery staple",
	})
	if !errors.Is(err, httpx.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", FirstName: "Alice", LastName: "Smith",
		Email: "alice@example.com", Password: "correct horse",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob", FirstName: "Bob", LastName: "Jones",
		Email: "alice@example.com", Password: "battery staple",
	})
	if !errors.Is(err, httpx.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
