package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `subscriber_id, creator_id, tier_level, subscribed_at, expires_at`

// UpsertSubscription writes the single ledger row for the (subscriber,
// creator) pair. Last write wins: a concurrent upsert for the same pair
// converges on one row holding the later values.
func (s *Store) UpsertSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO subscriptions (subscriber_id, creator_id, tier_level, subscribed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subscriber_id, creator_id) DO UPDATE SET
			tier_level = EXCLUDED.tier_level,
			subscribed_at = EXCLUDED.subscribed_at,
			expires_at = EXCLUDED.expires_at
		RETURNING `+subscriptionColumns,
		sub.SubscriberID, sub.CreatorID, sub.TierLevel, sub.SubscribedAt, sub.ExpiresAt,
	)
	return scanSubscription(row)
}

// GetSubscription is the point lookup for a fan's row toward one creator
func (s *Store) GetSubscription(ctx context.Context, subscriberID, creatorID uuid.UUID) (*models.Subscription, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE subscriber_id = $1 AND creator_id = $2`,
		subscriberID, creatorID)
	return scanSubscription(row)
}

// DeleteSubscription removes the ledger row; deleting a missing row is a no-op
func (s *Store) DeleteSubscription(ctx context.Context, subscriberID, creatorID uuid.UUID) error {
	if !s.ready() {
		return ErrNotConfigured
	}
	_, err := s.db.Exec(ctx, `
		DELETE FROM subscriptions WHERE subscriber_id = $1 AND creator_id = $2`,
		subscriberID, creatorID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptionsBySubscriber returns all of a fan's rows, newest first
func (s *Store) ListSubscriptionsBySubscriber(ctx context.Context, subscriberID uuid.UUID) ([]models.Subscription, error) {
	return s.listSubscriptions(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE subscriber_id = $1
		ORDER BY subscribed_at DESC`, subscriberID)
}

// ListSubscriptionsByCreator returns all rows toward a creator, newest first
func (s *Store) ListSubscriptionsByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Subscription, error) {
	return s.listSubscriptions(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE creator_id = $1
		ORDER BY subscribed_at DESC`, creatorID)
}

// ListActiveSubscriptionsByCreator returns only rows whose expiry is after now
func (s *Store) ListActiveSubscriptionsByCreator(ctx context.Context, creatorID uuid.UUID, now time.Time) ([]models.Subscription, error) {
	return s.listSubscriptions(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE creator_id = $1 AND expires_at > $2
		ORDER BY subscribed_at DESC`, creatorID, now)
}

func (s *Store) listSubscriptions(ctx context.Context, query string, args ...any) ([]models.Subscription, error) {
	if !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.SubscriberID, &sub.CreatorID, &sub.TierLevel, &sub.SubscribedAt, &sub.ExpiresAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(&sub.SubscriberID, &sub.CreatorID, &sub.TierLevel, &sub.SubscribedAt, &sub.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}
