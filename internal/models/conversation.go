package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the unordered pair of two participants. The store keeps
// the pair in canonical order (smaller UUID first) and enforces uniqueness
// over it, so lookups in either argument order find the same row.
type Conversation struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Participant1ID uuid.UUID `json:"participant1_id" db:"participant1_id"`
	Participant2ID uuid.UUID `json:"participant2_id" db:"participant2_id"`
	LastMessageAt  time.Time `json:"last_message_at" db:"last_message_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// OtherParticipant returns the participant that is not userID
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

// HasParticipant reports whether userID is one of the two participants
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// DirectMessage belongs to one conversation. ReadAt is nil while unread;
// the transition nil -> timestamp is monotonic and never reverts.
type DirectMessage struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ConversationID uuid.UUID  `json:"conversation_id" db:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id" db:"sender_id"`
	RecipientID    uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	MessageText    string     `json:"message_text" db:"message_text"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty" db:"read_at"`
}

// ConversationSummary is a conversation hydrated for list rendering:
// the other participant's profile, the most recent message and the
// viewer's unread count.
type ConversationSummary struct {
	Conversation
	OtherProfile *Profile       `json:"other_participant"`
	LastMessage  *DirectMessage `json:"last_message,omitempty"`
	UnreadCount  int            `json:"unread_count"`
}
