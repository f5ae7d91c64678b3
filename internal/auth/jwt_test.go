package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssuerRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute, time.Hour)

	claims := Claims{TokenVersion: uuid.NewString(), IsAdmin: true}
	claims.Subject = uuid.NewString()

	token, err := issuer.AccessToken(claims)
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}

	parsed, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Subject != claims.Subject {
		t.Fatalf("subject = %q, want %q", parsed.Subject, claims.Subject)
	}
	if parsed.TokenVersion != claims.TokenVersion {
		t.Fatalf("token version = %q, want %q", parsed.TokenVersion, claims.TokenVersion)
	}
	if !parsed.IsAdmin {
		t.Fatal("admin claim lost in round trip")
	}
	if parsed.ExpiresAt == nil || parsed.ExpiresAt.Before(time.Now()) {
		t.Fatal("expected a future expiry")
	}
}

func TestIssuerRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute, time.Hour)

	claims := Claims{TokenVersion: uuid.NewString()}
	claims.Subject = uuid.NewString()

	token, err := issuer.AccessToken(claims)
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestIssuerRejectsForeignSignature(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute, time.Hour)
	other := NewIssuer("other-secret", time.Minute, time.Hour)

	claims := Claims{TokenVersion: uuid.NewString()}
	claims.Subject = uuid.NewString()

	token, err := other.AccessToken(claims)
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}

func TestIssuerRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Minute, time.Hour)
	if _, err := issuer.Parse("not.a.token"); err == nil {
		t.Fatal("expected malformed token to be rejected")
	}
}
