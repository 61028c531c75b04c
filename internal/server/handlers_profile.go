package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/middleware"
	"github.com/fanlinkhq/fanlink/internal/profile"
	"github.com/fanlinkhq/fanlink/internal/store"
)

// updateProfileRequest carries the updatable profile fields; absent
// fields are left untouched
type updateProfileRequest struct {
	FullName        *string `json:"full_name"`
	AvatarURL       *string `json:"avatar_url"`
	ProfileImageURL *string `json:"profile_image_url"`
	BannerImageURL  *string `json:"banner_image_url"`
	Bio             *string `json:"bio"`
	FeedMinTier     *int    `json:"feed_min_tier"`
	MessagesMinTier *int    `json:"messages_min_tier"`
}

// handleGetOwnProfile returns the authenticated user's profile
func (s *APIServer) handleGetOwnProfile(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	p, err := s.profileService.Get(c.Request.Context(), userID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}
	if p == nil {
		respondError(c, apierrors.ErrProfileNotFoundError)
		return
	}

	c.JSON(http.StatusOK, p)
}

// handleUpdateOwnProfile applies a partial update to the authenticated
// user's profile
func (s *APIServer) handleUpdateOwnProfile(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	updated, err := s.profileService.Update(c.Request.Context(), userID, store.ProfilePatch{
		FullName:        req.FullName,
		AvatarURL:       req.AvatarURL,
		ProfileImageURL: req.ProfileImageURL,
		BannerImageURL:  req.BannerImageURL,
		Bio:             req.Bio,
		FeedMinTier:     req.FeedMinTier,
		MessagesMinTier: req.MessagesMinTier,
	})
	if err != nil {
		switch {
		case errors.Is(err, profile.ErrInvalidGateLevel):
			respondError(c, apierrors.NewValidationError("Gating tier must be between 0 and 3"))
		case errors.Is(err, profile.ErrGatingFanProfile):
			respondError(c, apierrors.NewInvalidRequestError("Gating settings only apply to creators"))
		case errors.Is(err, profile.ErrProfileNotFound):
			respondError(c, apierrors.ErrProfileNotFoundError)
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}

// handleListCreators returns the public creator directory
func (s *APIServer) handleListCreators(c *gin.Context) {
	creators, err := s.profileService.ListCreators(c.Request.Context())
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"creators": creators})
}

// handleGetCreator returns one creator's public profile
func (s *APIServer) handleGetCreator(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	p, err := s.profileService.Get(c.Request.Context(), creatorID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}
	if p == nil || !p.IsCreator() {
		respondError(c, apierrors.ErrCreatorNotFoundError)
		return
	}

	c.JSON(http.StatusOK, p)
}

// handleGetAccess reports the viewer's effective tier toward a creator.
// Anonymous viewers get tier 0.
func (s *APIServer) handleGetAccess(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	viewerID := middleware.GetUserIDFromContext(c)

	tierLevel := s.evaluator.EffectiveTier(c.Request.Context(), viewerID, creatorID)
	c.JSON(http.StatusOK, gin.H{
		"creator_id":     creatorID,
		"effective_tier": tierLevel,
	})
}

// parseUUIDParam parses a path parameter as a UUID, responding with a
// validation error when malformed
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apierrors.NewValidationError(name+" must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}
