package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/middleware"
	"github.com/fanlinkhq/fanlink/internal/subscription"
)

// subscribeRequest carries a subscribe or re-subscribe intent
type subscribeRequest struct {
	CreatorID uuid.UUID `json:"creator_id" binding:"required"`
	TierLevel int       `json:"tier_level" binding:"required"`
}

// handleSubscribe records a subscription for the caller. Re-subscribing
// replaces the existing row: the tier is overwritten and the expiry
// restarts from now.
func (s *APIServer) handleSubscribe(c *gin.Context) {
	subscriberID := middleware.GetUserIDFromContext(c)

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	sub, err := s.subscriptionService.Subscribe(c.Request.Context(), subscriberID, req.CreatorID, req.TierLevel)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvalidTierLevel):
			respondError(c, apierrors.NewValidationError("Tier level must be between 1 and 3"))
		case errors.Is(err, subscription.ErrSelfSubscription):
			respondError(c, apierrors.NewInvalidRequestError("You cannot subscribe to yourself"))
		case errors.Is(err, subscription.ErrCreatorNotFound), errors.Is(err, subscription.ErrNotACreator):
			respondError(c, apierrors.ErrCreatorNotFoundError)
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, sub)
}

// handleUnsubscribe removes the caller's subscription to a creator
func (s *APIServer) handleUnsubscribe(c *gin.Context) {
	subscriberID := middleware.GetUserIDFromContext(c)

	creatorID, ok := parseUUIDParam(c, "creatorID")
	if !ok {
		return
	}

	if err := s.subscriptionService.Unsubscribe(c.Request.Context(), subscriberID, creatorID); err != nil {
		respondFallbackError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleListMySubscriptions returns the caller's subscription rows,
// expired ones included; clients decide how to render lapsed entries
func (s *APIServer) handleListMySubscriptions(c *gin.Context) {
	subscriberID := middleware.GetUserIDFromContext(c)

	subs, err := s.subscriptionService.ListForSubscriber(c.Request.Context(), subscriberID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// handleListSubscribers returns the profiles of the caller's currently
// active subscribers
func (s *APIServer) handleListSubscribers(c *gin.Context) {
	creatorID := middleware.GetUserIDFromContext(c)

	profiles, err := s.subscriptionService.ActiveSubscriberProfiles(c.Request.Context(), creatorID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscribers": profiles})
}

// handleSubscriptionStats returns the caller's active subscriber counts
// grouped by tier level
func (s *APIServer) handleSubscriptionStats(c *gin.Context) {
	creatorID := middleware.GetUserIDFromContext(c)

	stats, err := s.subscriptionService.StatsByTier(c.Request.Context(), creatorID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"by_tier": stats})
}
