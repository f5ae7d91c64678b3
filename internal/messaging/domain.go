package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the single thread between an unordered pair of users.
// The pair (UserAID, UserBID) is stored in whichever order the first
// message happened to establish; lookups ignore the order.
type Conversation struct {
	ID        uuid.UUID
	UserAID   uuid.UUID
	UserBID   uuid.UUID
	CreatedAt time.Time
}

// Partner returns the other participant relative to userID.
func (c Conversation) Partner(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// Includes reports whether userID participates in the conversation.
func (c Conversation) Includes(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Message is one direct message inside a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	CreatedAt      time.Time
}
