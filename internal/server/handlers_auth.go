package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/identity"
	"github.com/fanlinkhq/fanlink/internal/middleware"
)

// handleRegister handles user registration
func (s *APIServer) handleRegister(c *gin.Context) {
	var req identity.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.identityService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailAlreadyExists):
			respondError(c, apierrors.ErrEmailTakenError)
		case errors.Is(err, identity.ErrDisplayNameRequired):
			respondError(c, apierrors.NewValidationError("Display name is required for creators"))
		case errors.Is(err, identity.ErrInvalidRole):
			respondError(c, apierrors.NewValidationError("Role must be fan or creator"))
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// handleLogin handles user login
func (s *APIServer) handleLogin(c *gin.Context) {
	var req identity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.identityService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(c, apierrors.ErrInvalidCredentialsError)
		} else {
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleLogout handles user logout
func (s *APIServer) handleLogout(c *gin.Context) {
	// Stateless JWT; the client discards the token.
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// handleRefresh handles token refresh
func (s *APIServer) handleRefresh(c *gin.Context) {
	var req identity.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	tokens, err := s.identityService.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrTokenExpired):
			respondError(c, apierrors.ErrTokenExpiredError)
		case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrUserNotFound):
			respondError(c, apierrors.ErrInvalidCredentialsError)
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// handleSession resolves the current session's user. Freshly issued
// sessions may lag behind the store for a moment, so the lookup waits
// within a short bound instead of failing outright.
func (s *APIServer) handleSession(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	user, err := s.identityService.WaitForSession(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, identity.ErrSessionNotReady) {
			respondError(c, apierrors.ErrInvalidCredentialsError)
		} else {
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	})
}
