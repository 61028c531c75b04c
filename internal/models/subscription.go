package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription links a fan to a creator at a tier level. There is at most
// one row per (subscriber, creator) pair; re-subscribing overwrites the
// level and resets the expiry. A row past its expiry is simply void -
// expiry is evaluated lazily at read time, there is no sweeper.
type Subscription struct {
	SubscriberID uuid.UUID `json:"subscriber_id" db:"subscriber_id"`
	CreatorID    uuid.UUID `json:"creator_id" db:"creator_id"`
	TierLevel    int       `json:"tier_level" db:"tier_level"`
	SubscribedAt time.Time `json:"subscribed_at" db:"subscribed_at"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
}

// ActiveAt reports whether the subscription grants access at the given instant
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
