package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a forum account. TokenVersion is a rotating nonce: every
// issued token embeds the version current at mint time, and rotating it
// invalidates all outstanding tokens at once.
type User struct {
	ID           uuid.UUID
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	TokenVersion uuid.UUID
	CreatedAt    time.Time
}
