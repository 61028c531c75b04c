// Package subscription is the ledger recording fan->creator subscriptions.
// It is the source of truth for current access level: one row per
// (subscriber, creator) pair, overwritten on every subscribe, void once
// its expiry passes. Upgrading and downgrading are the same operation.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fanlinkhq/fanlink/internal/logging"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/monitoring"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/google/uuid"
)

// Service errors
var (
	ErrInvalidTierLevel   = errors.New("tier level must be between 1 and 3")
	ErrCreatorNotFound    = errors.New("creator not found")
	ErrNotACreator        = errors.New("target profile is not a creator")
	ErrSelfSubscription   = errors.New("creators cannot subscribe to themselves")
	ErrSubscriberNotFound = errors.New("subscriber profile not found")
)

// Store is the slice of the entity store the ledger writes through
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpsertSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	DeleteSubscription(ctx context.Context, subscriberID, creatorID uuid.UUID) error
	ListSubscriptionsBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]models.Subscription, error)
	ListSubscriptionsByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Subscription, error)
	ListActiveSubscriptionsByCreator(ctx context.Context, creatorID uuid.UUID, now time.Time) ([]models.Subscription, error)
	GetProfilesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error)
}

// Service handles ledger operations
type Service struct {
	store    Store
	validity time.Duration
	now      func() time.Time
}

// NewService creates a ledger service with the given validity window
func NewService(st Store, validity time.Duration) *Service {
	return &Service{
		store:    st,
		validity: validity,
		now:      time.Now,
	}
}

// WithClock overrides the service clock
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Subscribe upserts the single row for (subscriber, creator): the level is
// overwritten and the expiry reset to now plus the validity window. There
// is no prorating or stacking; last write wins under concurrency.
func (s *Service) Subscribe(ctx context.Context, subscriberID, creatorID uuid.UUID, tierLevel int) (*models.Subscription, error) {
	if !models.ValidTierLevel(tierLevel) {
		return nil, ErrInvalidTierLevel
	}
	if subscriberID == creatorID {
		return nil, ErrSelfSubscription
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

	now := s.now()
	sub, err := s.store.UpsertSubscription(ctx, &models.Subscription{
		SubscriberID: subscriberID,
		CreatorID:    creatorID,
		TierLevel:    tierLevel,
		SubscribedAt: now,
		ExpiresAt:    now.Add(s.validity),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write subscription: %w", err)
	}

	monitoring.RecordSubscriptionWrite("subscribe")
	logging.LogSubscriptionEvent("subscribe", subscriberID.String(), creatorID.String(), sub.TierLevel, sub.ExpiresAt)
	return sub, nil
}

// Unsubscribe removes the ledger row. Removing an absent row is a no-op.
func (s *Service) Unsubscribe(ctx context.Context, subscriberID, creatorID uuid.UUID) error {
	if err := s.store.DeleteSubscription(ctx, subscriberID, creatorID); err != nil {
		return err
	}
	monitoring.RecordSubscriptionWrite("unsubscribe")
	logging.LogSubscriptionEvent("unsubscribe", subscriberID.String(), creatorID.String(), 0, time.Time{})
	return nil
}

// ListForSubscriber returns all of a fan's subscription rows, newest
// first, including expired ones (callers derive activity from expires_at)
func (s *Service) ListForSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]models.Subscription, error) {
	return s.store.ListSubscriptionsBySubscriber(ctx, subscriberID)
}

// ListForCreator returns all rows toward a creator, newest first
func (s *Service) ListForCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Subscription, error) {
	return s.store.ListSubscriptionsByCreator(ctx, creatorID)
}

// ActiveSubscriberProfiles returns the profiles of fans currently holding
// an active subscription to the creator
func (s *Service) ActiveSubscriberProfiles(ctx context.Context, creatorID uuid.UUID) ([]models.Profile, error) {
	subs, err := s.store.ListActiveSubscriptionsByCreator(ctx, creatorID, s.now())
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.SubscriberID)
	}
	return s.store.GetProfilesByIDs(ctx, ids)
}

// StatsByTier returns the number of active subscribers per tier level
func (s *Service) StatsByTier(ctx context.Context, creatorID uuid.UUID) (map[int]int, error) {
	subs, err := s.store.ListActiveSubscriptionsByCreator(ctx, creatorID, s.now())
	if err != nil {
		return nil, err
	}
	stats := make(map[int]int)
	for _, sub := range subs {
		stats[sub.TierLevel]++
	}
	return stats, nil
}
