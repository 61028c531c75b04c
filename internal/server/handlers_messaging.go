package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/messaging"
	"github.com/fanlinkhq/fanlink/internal/middleware"
)

// openConversationRequest names the other participant
type openConversationRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
}

// sendMessageRequest carries the message text
type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleListConversations returns the caller's conversations ordered by
// last activity
func (s *APIServer) handleListConversations(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	summaries, err := s.messagingService.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// handleOpenConversation finds or creates the conversation between the
// caller and the named participant. Opening is permission-free; only
// sending is gated.
func (s *APIServer) handleOpenConversation(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	var req openConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	conv, err := s.messagingService.GetOrCreateConversation(c.Request.Context(), userID, req.ParticipantID)
	if err != nil {
		switch {
		case errors.Is(err, messaging.ErrSelfConversation):
			respondError(c, apierrors.NewInvalidRequestError("You cannot open a conversation with yourself"))
		case errors.Is(err, messaging.ErrConversationNotFound):
			respondError(c, apierrors.NewValidationError("participant_id must be a valid user"))
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, conv)
}

// handleGetMessages returns a conversation's messages in chronological
// order
func (s *APIServer) handleGetMessages(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	conversationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := s.messagingService.Messages(c.Request.Context(), conversationID, userID, limit)
	if err != nil {
		respondMessagingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// handleSendMessage delivers a message into a conversation. The
// permission check runs here, at send time.
func (s *APIServer) handleSendMessage(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	conversationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	conv, err := s.messagingService.Conversation(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondMessagingError(c, err)
		return
	}

	msg, err := s.messagingService.Send(c.Request.Context(), conversationID, userID, conv.OtherParticipant(userID), req.Text)
	if err != nil {
		respondMessagingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// handleMarkRead stamps the caller's unread messages in a conversation
func (s *APIServer) handleMarkRead(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	conversationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.messagingService.MarkConversationRead(c.Request.Context(), conversationID, userID); err != nil {
		respondMessagingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// handleUnreadTotal returns the caller's unread badge count
func (s *APIServer) handleUnreadTotal(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	total, err := s.messagingService.UnreadTotal(c.Request.Context(), userID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": total})
}

// respondMessagingError maps messaging service errors onto API errors
func respondMessagingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, messaging.ErrPermissionDenied):
		respondError(c, apierrors.ErrPermissionDeniedError)
	case errors.Is(err, messaging.ErrConversationNotFound):
		respondError(c, apierrors.ErrConversationNotFoundError)
	case errors.Is(err, messaging.ErrNotParticipant):
		respondError(c, apierrors.ErrForbiddenError)
	case errors.Is(err, messaging.ErrMessageEmpty):
		respondError(c, apierrors.NewValidationError("Message text is empty"))
	case errors.Is(err, messaging.ErrMessageTooLong):
		respondError(c, apierrors.NewValidationError("Message text exceeds the maximum length"))
	default:
		respondFallbackError(c, err)
	}
}
