package topics

import (
	"time"

	"github.com/google/uuid"
)

// Topic is a discussion thread inside one category. A locked topic accepts
// no non-admin writes, independent of the category lock.
type Topic struct {
	ID          uuid.UUID
	Title       string
	Content     string
	AuthorID    uuid.UUID
	CategoryID  uuid.UUID
	IsLocked    bool
	BestReplyID *uuid.UUID
	CreatedAt   time.Time
}

// Filter controls listing order and pagination.
type Filter struct {
	OrderBy string // created_at or title
	Order   string // asc or desc
	Limit   int
	Offset  int
}

// Normalize fills defaults and discards unknown column names, keeping the
// values safe to interpolate into ORDER BY.
func (f Filter) Normalize() Filter {
	switch f.OrderBy {
	case "created_at", "title":
	default:
		f.OrderBy = "created_at"
	}
	if f.Order != "asc" {
		f.Order = "desc"
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
