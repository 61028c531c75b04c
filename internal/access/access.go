// Package access is the decision engine for the platform: given an actor
// and a resource it answers allow or deny from subscription tier, role and
// expiration state. Decisions are derived from current store state on
// every call and are never cached, because subscriptions expire in
// wall-clock time independently of any write.
package access

import (
	"context"
	"errors"
	"time"

	"github.com/fanlinkhq/fanlink/internal/logging"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/monitoring"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SubscriptionSource is the slice of the entity store the evaluator reads
// subscription state from
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, subscriberID, creatorID uuid.UUID) (*models.Subscription, error)
}

// ProfileSource resolves the profiles whose roles and gating settings
// drive the messaging rule
type ProfileSource interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Evaluator computes allow/deny decisions. The clock is injected so that
// expiry boundaries are testable.
type Evaluator struct {
	subs     SubscriptionSource
	profiles ProfileSource
	now      func() time.Time
}

// NewEvaluator creates an evaluator over the given store slices
func NewEvaluator(subs SubscriptionSource, profiles ProfileSource) *Evaluator {
	return &Evaluator{
		subs:     subs,
		profiles: profiles,
		now:      time.Now,
	}
}

// WithClock overrides the evaluator's clock
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// EffectiveTier returns the tier level the fan currently holds toward the
// creator: the subscription row's level while expires_at is in the future,
// 0 otherwise. Anonymous viewers (uuid.Nil) and store failures both
// resolve to 0 - the evaluator fails closed.
func (e *Evaluator) EffectiveTier(ctx context.Context, fanID, creatorID uuid.UUID) int {
	if fanID == uuid.Nil || creatorID == uuid.Nil {
		return 0
	}
	sub, err := e.subs.GetSubscription(ctx, fanID, creatorID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).
				Str("fan_id", fanID.String()).
				Str("creator_id", creatorID.String()).
				Msg("Failed to resolve effective tier, denying")
		}
		return 0
	}
	return EffectiveTierOf(sub, e.now())
}

// EffectiveTierOf is the pure form: the row's level while active, else 0
func EffectiveTierOf(sub *models.Subscription, now time.Time) int {
	if sub == nil || !sub.ActiveAt(now) {
		return 0
	}
	return sub.TierLevel
}

// CanViewPost reports whether a viewer at effectiveTier may see content
// requiring requiredTier. Required tier 0 is public, including to
// anonymous viewers at effective tier 0.
func CanViewPost(requiredTier, effectiveTier int) bool {
	return requiredTier <= effectiveTier
}

// CanViewFeed reports whether the viewer may read the creator's live
// feed. The creator always sees their own feed; everyone else is gated by
// the profile's feed_min_tier setting.
func (e *Evaluator) CanViewFeed(ctx context.Context, viewerID uuid.UUID, creator *models.Profile) bool {
	if creator == nil {
		return false
	}
	if viewerID == creator.ID {
		return true
	}
	if creator.FeedMinTier == 0 {
		return true
	}
	allowed := e.EffectiveTier(ctx, viewerID, creator.ID) >= creator.FeedMinTier
	monitoring.RecordAccessDecision("feed", allowed)
	if !allowed {
		logging.LogAccessDenied("feed", viewerID.String(), creator.ID.String())
	}
	return allowed
}

// CanSendMessage applies the asymmetric messaging rule:
//
//   - creator -> fan: allowed iff the recipient holds an active
//     subscription to the sender, at any tier level;
//   - fan -> creator: allowed iff the fan holds an active subscription to
//     the creator at a level meeting the creator's messages_min_tier;
//   - everything else (fan -> fan, missing profiles): denied.
//
// The decision is re-derived from subscription state on every call.
// Missing profiles deny without error; store failures surface so that
// send-time callers can distinguish an outage from a denial.
func (e *Evaluator) CanSendMessage(ctx context.Context, senderID, recipientID uuid.UUID) (bool, error) {
	if senderID == uuid.Nil || recipientID == uuid.Nil || senderID == recipientID {
		return false, nil
	}

	sender, err := e.profiles.GetProfile(ctx, senderID)
	if err != nil {
		return false, ignoreNotFound(err)
	}
	recipient, err := e.profiles.GetProfile(ctx, recipientID)
	if err != nil {
		return false, ignoreNotFound(err)
	}
	if sender == nil || recipient == nil {
		// Not-found lookups deny without error.
		return false, nil
	}

	allowed, err := e.messagingRule(ctx, sender, recipient)
	if err != nil {
		return false, err
	}
	monitoring.RecordAccessDecision("message", allowed)
	if !allowed {
		logging.LogAccessDenied("message", senderID.String(), recipientID.String())
	}
	return allowed, nil
}

func (e *Evaluator) messagingRule(ctx context.Context, sender, recipient *models.Profile) (bool, error) {
	now := e.now()

	// Creators may message any of their paying subscribers, tier-independent.
	if sender.IsCreator() {
		sub, err := e.subs.GetSubscription(ctx, recipient.ID, sender.ID)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		return sub != nil && sub.ActiveAt(now), nil
	}

	// Fans may only message creators, and only while holding an active
	// subscription at or above the creator's messaging gate.
	if recipient.IsCreator() {
		sub, err := e.subs.GetSubscription(ctx, sender.ID, recipient.ID)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		if sub == nil || !sub.ActiveAt(now) {
			return false, nil
		}
		return sub.TierLevel >= recipient.MessagesMinTier, nil
	}

	return false, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
