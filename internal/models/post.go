package models

import (
	"time"

	"github.com/google/uuid"
)

// Post represents a creator's tiered post. required_tier_level 0 means
// public. Posts are immutable once created except for deletion.
type Post struct {
	ID                uuid.UUID `json:"id" db:"id"`
	CreatorID         uuid.UUID `json:"creator_id" db:"creator_id"`
	Slug              string    `json:"slug" db:"slug"`
	Title             string    `json:"title" db:"title"`
	Content           *string   `json:"content,omitempty" db:"content"`
	ImageURL          *string   `json:"image_url,omitempty" db:"image_url"`
	RequiredTierLevel int       `json:"required_tier_level" db:"required_tier_level"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// FeedMessage represents an entry in a creator's live feed. Feed visibility
// is gated by the creator profile's feed_min_tier, not per message.
type FeedMessage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatorID uuid.UUID `json:"creator_id" db:"creator_id"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	ImageURL  *string   `json:"image_url,omitempty" db:"image_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
