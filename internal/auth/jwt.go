package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload carried by both access and refresh tokens.
// TokenVersion must match the user's stored nonce at verification time;
// IsAdmin is embedded at mint time so request handling does not need a
// registry lookup per call.
type Claims struct {
	TokenVersion string `json:"token_version"`
	IsAdmin      bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Issuer mints and parses signed HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer constructs an Issuer. The secret should be a cryptographically
// random string; TTLs are short for access and long for refresh tokens.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessToken signs claims with the access-token expiry.
func (i *Issuer) AccessToken(claims Claims) (string, error) {
	return i.sign(claims, i.accessTTL)
}

// RefreshToken signs claims with the refresh-token expiry.
func (i *Issuer) RefreshToken(claims Claims) (string, error) {
	return i.sign(claims, i.refreshTTL)
}

func (i *Issuer) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		// Signer misconfiguration, surfaced as an internal error.
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature and expiry and returns the claims.
func (i *Issuer) Parse(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}
	return &claims, nil
}
