package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/forumhq/forumhq/internal/admins"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
	"github.com/forumhq/forumhq/internal/users"
)

// UserStore defines the user persistence needed by the token service.
type UserStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	ByUsername(ctx context.Context, username string) (*users.User, error)
	UpdateTokenVersion(ctx context.Context, id, version uuid.UUID) error
}

// TokenPair is the login/refresh response contract.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service wraps session token business rules. Tokens are self-verifying,
// but validity is additionally gated by the per-user token version: rotating
// the stored version invalidates every outstanding token at once.
type Service struct {
	store  UserStore
	admins admins.Registry
	issuer *Issuer
}

// NewService constructs a new Service.
func NewService(store UserStore, registry admins.Registry, issuer *Issuer) *Service {
	return &Service{store: store, admins: registry, issuer: issuer}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*users.User, error) {
	user, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// IssueTokenPair rotates the user's token version and mints an access and a
// refresh token embedding the fresh version. All previously issued tokens,
// including the one used to authenticate this call, become invalid.
func (s *Service) IssueTokenPair(ctx context.Context, user *users.User) (*TokenPair, error) {
	version := uuid.New()
	if err := s.store.UpdateTokenVersion(ctx, user.ID, version); err != nil {
		return nil, err
	}
	isAdmin, err := s.admins.IsAdmin(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	claims := s.claims(user.ID, version.String(), isAdmin)
	access, err := s.issuer.AccessToken(claims)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.RefreshToken(claims)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Verify checks the token signature and expiry, then requires the embedded
// version to exactly match the user's stored version. Every failure mode
// yields the same error so the response cannot distinguish a malformed
// token from a revoked one.
func (s *Service) Verify(ctx context.Context, token string) (shared.Identity, error) {
	claims, err := s.verifyClaims(ctx, token)
	if err != nil {
		return shared.Identity{}, err
	}
	userID, _ := uuid.Parse(claims.Subject)
	return shared.Identity{UserID: userID, IsAdmin: claims.IsAdmin}, nil
}

// Refresh verifies the refresh token and mints a new access token carrying
// the same subject, version and admin claims. The stored version is never
// rotated here; rotation happens only at login, logout and explicit revoke.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.verifyClaims(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	userID, _ := uuid.Parse(claims.Subject)
	return s.issuer.AccessToken(s.claims(userID, claims.TokenVersion, claims.IsAdmin))
}

// Revoke force-rotates the user's token version, invalidating all their
// tokens immediately. Used for logout and admin-initiated revocation.
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.store.UpdateTokenVersion(ctx, userID, uuid.New())
}

func (s *Service) claims(userID uuid.UUID, version string, isAdmin bool) Claims {
	c := Claims{TokenVersion: version, IsAdmin: isAdmin}
	c.Subject = userID.String()
	return c
}

func (s *Service) verifyClaims(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	version, err := uuid.Parse(claims.TokenVersion)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}

	user, err := s.store.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, shared.ErrInvalidToken
		}
		return nil, err
	}
	if user.TokenVersion != version {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}
