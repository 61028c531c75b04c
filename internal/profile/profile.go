// Package profile manages user profiles and the creator gating settings
// (feed_min_tier, messages_min_tier) the access evaluator reads.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/google/uuid"
)

// Service errors
var (
	ErrInvalidGateLevel = errors.New("gating tier must be between 0 and 3")
	ErrInvalidRole      = errors.New("role must be fan or creator")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrGatingFanProfile = errors.New("gating settings only apply to creators")
)

// Store is the slice of the entity store the profile service uses
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch store.ProfilePatch) (*models.Profile, error)
	ListCreators(ctx context.Context) ([]models.Profile, error)
}

// Service handles profile operations
type Service struct {
	store Store
}

// NewService creates a profile service
func NewService(st Store) *Service {
	return &Service{store: st}
}

// Get fetches a profile. A missing profile is a non-fatal empty result
// for readers: (nil, nil).
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Upsert writes a whole profile row
func (s *Service) Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if !p.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if !models.ValidGateLevel(p.FeedMinTier) || !models.ValidGateLevel(p.MessagesMinTier) {
		return nil, ErrInvalidGateLevel
	}
	return s.store.UpsertProfile(ctx, p)
}

// Update applies a partial update. Gating settings are validated and only
// accepted on creator profiles.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch store.ProfilePatch) (*models.Profile, error) {
	if patch.FeedMinTier != nil && !models.ValidGateLevel(*patch.FeedMinTier) {
		return nil, ErrInvalidGateLevel
	}
	if patch.MessagesMinTier != nil && !models.ValidGateLevel(*patch.MessagesMinTier) {
		return nil, ErrInvalidGateLevel
	}

	if patch.FeedMinTier != nil || patch.MessagesMinTier != nil {
		current, err := s.store.GetProfile(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrProfileNotFound
			}
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		if !current.IsCreator() {
			return nil, ErrGatingFanProfile
		}
	}

	p, err := s.store.UpdateProfile(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListCreators returns all creator profiles, newest first
func (s *Service) ListCreators(ctx context.Context) ([]models.Profile, error) {
	return s.store.ListCreators(ctx)
}
