package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("could not authenticate user")
	// ErrInvalidToken covers every token verification failure. Malformed,
	// expired and revoked tokens share one message so responses cannot be
	// used as a revocation oracle.
	ErrInvalidToken = errors.New("could not verify token")
)
