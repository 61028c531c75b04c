package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/middleware"
	"github.com/fanlinkhq/fanlink/internal/tier"
)

// upsertTierRequest carries the tier fields. A nil price means a free
// tier; prices are whole tomans.
type upsertTierRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

// handleListTiers returns a creator's tier catalog
func (s *APIServer) handleListTiers(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	tiers, err := s.tierService.ListTiers(c.Request.Context(), creatorID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

// handleUpsertTier creates or replaces one of the caller's tiers
func (s *APIServer) handleUpsertTier(c *gin.Context) {
	creatorID := middleware.GetUserIDFromContext(c)

	level, err := strconv.Atoi(c.Param("level"))
	if err != nil {
		respondError(c, apierrors.NewValidationError("level must be an integer"))
		return
	}

	var req upsertTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	t, err := s.tierService.UpsertTier(c.Request.Context(), creatorID, level, req.Name, req.Description, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, tier.ErrInvalidLevel):
			respondError(c, apierrors.NewValidationError("Tier level must be between 1 and 3"))
		case errors.Is(err, tier.ErrNameRequired):
			respondError(c, apierrors.NewValidationError("Tier name is required"))
		case errors.Is(err, tier.ErrPriceBelowFloor):
			respondError(c, apierrors.NewValidationError("Price is below the platform minimum"))
		case errors.Is(err, tier.ErrPriceAboveCeil):
			respondError(c, apierrors.NewValidationError("Top tier price exceeds the platform maximum"))
		case errors.Is(err, tier.ErrCreatorNotFound), errors.Is(err, tier.ErrNotACreator):
			respondError(c, apierrors.ErrCreatorNotFoundError)
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, t)
}

// handleDeleteTier removes one of the caller's tiers. Existing
// subscriptions at that level are untouched and run out on their own.
func (s *APIServer) handleDeleteTier(c *gin.Context) {
	creatorID := middleware.GetUserIDFromContext(c)

	level, err := strconv.Atoi(c.Param("level"))
	if err != nil {
		respondError(c, apierrors.NewValidationError("level must be an integer"))
		return
	}

	if err := s.tierService.DeleteTier(c.Request.Context(), creatorID, level); err != nil {
		switch {
		case errors.Is(err, tier.ErrInvalidLevel):
			respondError(c, apierrors.NewValidationError("Tier level must be between 1 and 3"))
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}
