// Package tier manages a creator's subscription catalog. The catalog only
// drives the subscribe page; deleting a level never revokes access already
// recorded in the subscription ledger.
package tier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fanlinkhq/fanlink/internal/config"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service errors
var (
	ErrInvalidLevel    = errors.New("tier level must be between 1 and 3")
	ErrNameRequired    = errors.New("tier name is required")
	ErrPriceBelowFloor = errors.New("tier price is below the minimum")
	ErrPriceAboveCeil  = errors.New("top tier price exceeds the maximum")
	ErrCreatorNotFound = errors.New("creator not found")
	ErrNotACreator     = errors.New("profile is not a creator")
)

// Store is the slice of the entity store the catalog uses
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpsertTier(ctx context.Context, t *models.Tier) (*models.Tier, error)
	DeleteTier(ctx context.Context, creatorID uuid.UUID, level int) error
	ListTiers(ctx context.Context, creatorID uuid.UUID) ([]models.Tier, error)
}

// PricingPolicy bounds tier prices: a floor for every level and a ceiling
// for the top tier only. Amounts are whole tomans.
type PricingPolicy struct {
	Floor   decimal.Decimal
	Ceiling decimal.Decimal
}

// PolicyFromConfig builds the pricing policy from configuration
func PolicyFromConfig(cfg *config.PricingConfig) PricingPolicy {
	return PricingPolicy{
		Floor:   decimal.NewFromInt(cfg.MinTierPrice),
		Ceiling: decimal.NewFromInt(cfg.MaxTopTierPrice),
	}
}

// Validate checks a price against the policy for the given level. A nil
// price (free tier) always passes.
func (p PricingPolicy) Validate(level int, price *decimal.Decimal) error {
	if price == nil {
		return nil
	}
	if price.LessThan(p.Floor) {
		return ErrPriceBelowFloor
	}
	if level == models.TierLevelMax && price.GreaterThan(p.Ceiling) {
		return ErrPriceAboveCeil
	}
	return nil
}

// Service handles catalog operations
type Service struct {
	store  Store
	policy PricingPolicy
}

// NewService creates a catalog service with the given pricing policy
func NewService(st Store, policy PricingPolicy) *Service {
	return &Service{store: st, policy: policy}
}

// UpsertTier creates or replaces one catalog level for the creator
func (s *Service) UpsertTier(ctx context.Context, creatorID uuid.UUID, level int, name string, description *string, price *decimal.Decimal) (*models.Tier, error) {
	if !models.ValidTierLevel(level) {
		return nil, ErrInvalidLevel
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := s.policy.Validate(level, price); err != nil {
		return nil, err
	}

	creator, err := s.store.GetProfile(ctx, creatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}
	if !creator.IsCreator() {
		return nil, ErrNotACreator
	}

	return s.store.UpsertTier(ctx, &models.Tier{
		CreatorID:   creatorID,
		Level:       level,
		Name:        name,
		Description: description,
		Price:       price,
	})
}

// DeleteTier disables one catalog level. Subscribers already at this level
// keep their effective tier until natural expiry: the ledger is
// authoritative for access and is deliberately left untouched here.
func (s *Service) DeleteTier(ctx context.Context, creatorID uuid.UUID, level int) error {
	if !models.ValidTierLevel(level) {
		return ErrInvalidLevel
	}
	return s.store.DeleteTier(ctx, creatorID, level)
}

// ListTiers returns the creator's catalog ordered by level
func (s *Service) ListTiers(ctx context.Context, creatorID uuid.UUID) ([]models.Tier, error) {
	return s.store.ListTiers(ctx, creatorID)
}
