package replies

import (
	"time"

	"github.com/google/uuid"
)

// Reply is a single answer inside a topic.
type Reply struct {
	ID        uuid.UUID
	Content   string
	AuthorID  uuid.UUID
	TopicID   uuid.UUID
	CreatedAt time.Time
}

// Reaction is one user's vote on one reply. A user holds at most one
// reaction per reply; polarity flips in place and a repeat vote removes it.
type Reaction struct {
	UserID   uuid.UUID
	ReplyID  uuid.UUID
	Positive bool
}

// toggleAction is the storage effect of applying one vote against the
// caller's existing reaction.
type toggleAction int

const (
	toggleCreate toggleAction = iota
	toggleRemove
	toggleFlip
)

// resolveToggle decides the vote toggle: no prior reaction creates one, a
// repeat of the same polarity removes it, the opposite polarity flips it.
func resolveToggle(existing *Reaction, positive bool) toggleAction {
	switch {
	case existing == nil:
		return toggleCreate
	case existing.Positive == positive:
		return toggleRemove
	default:
		return toggleFlip
	}
}

// VoteCounts are computed from reactions at read time, never stored.
type VoteCounts struct {
	Upvotes   int
	Downvotes int
}

// WithVotes pairs a reply with its current tally.
type WithVotes struct {
	Reply
	Votes VoteCounts
}
