package categories

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel scopes what a grant permits inside one private category.
type AccessLevel string

// Access levels for category grants.
const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// Valid reports whether the value is a known access level.
func (l AccessLevel) Valid() bool {
	return l == AccessRead || l == AccessWrite
}

// Category groups topics. A private category requires an explicit grant to
// read or write; a locked category accepts no writes from non-admins
// regardless of privacy.
type Category struct {
	ID        uuid.UUID
	Name      string
	IsPrivate bool
	IsLocked  bool
	CreatedAt time.Time
}

// Permission is a grant tying one user to one category at one access
// level. At most one grant exists per (user, category) pair.
type Permission struct {
	UserID      uuid.UUID
	CategoryID  uuid.UUID
	AccessLevel AccessLevel
}
