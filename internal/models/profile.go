package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier level bounds. Level 0 on gating settings means "unrestricted".
const (
	TierLevelMin = 1
	TierLevelMax = 3
)

// ValidTierLevel reports whether level is a subscribable tier (1..3)
func ValidTierLevel(level int) bool {
	return level >= TierLevelMin && level <= TierLevelMax
}

// ValidGateLevel reports whether level is a valid gating setting (0..3)
func ValidGateLevel(level int) bool {
	return level >= 0 && level <= TierLevelMax
}

// Profile represents a user's public profile. Creators additionally carry
// two gating settings: the minimum tier required to view their live feed
// and the minimum tier required to message them directly.
type Profile struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Email           *string   `json:"email,omitempty" db:"email"`
	FullName        *string   `json:"full_name,omitempty" db:"full_name"`
	Role            Role      `json:"role" db:"role"`
	AvatarURL       *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty" db:"profile_image_url"`
	BannerImageURL  *string   `json:"banner_image_url,omitempty" db:"banner_image_url"`
	Bio             *string   `json:"bio,omitempty" db:"bio"`
	FeedMinTier     int       `json:"feed_min_tier" db:"feed_min_tier"`
	MessagesMinTier int       `json:"messages_min_tier" db:"messages_min_tier"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// IsCreator reports whether the profile belongs to a creator
func (p *Profile) IsCreator() bool {
	return p.Role == RoleCreator
}
