package notify

import (
	"github.com/google/uuid"
)

// Event is the payload pushed to a connected user.
type Event struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
	SenderID       uuid.UUID `json:"sender_id,omitempty"`
	Body           string    `json:"body,omitempty"`
}

// EventNewMessage announces a direct message to its receiver.
const EventNewMessage = "new_message"
