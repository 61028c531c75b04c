package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/feed"
	"github.com/fanlinkhq/fanlink/internal/middleware"
	"github.com/fanlinkhq/fanlink/internal/post"
)

// createPostRequest carries the fields for a new post. The slug is
// derived from the title when absent.
type createPostRequest struct {
	Slug              string  `json:"slug"`
	Title             string  `json:"title" binding:"required"`
	Content           *string `json:"content"`
	ImageURL          *string `json:"image_url"`
	RequiredTierLevel int     `json:"required_tier_level"`
}

// postToFeedRequest carries a new live feed message
type postToFeedRequest struct {
	Body     string  `json:"body" binding:"required"`
	ImageURL *string `json:"image_url"`
}

// handleCreatePost publishes a new post on the caller's page
func (s *APIServer) handleCreatePost(c *gin.Context) {
	creatorID := middleware.GetUserIDFromContext(c)

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	created, err := s.postService.Create(c.Request.Context(), creatorID, post.CreateInput{
		Slug:              req.Slug,
		Title:             req.Title,
		Content:           req.Content,
		ImageURL:          req.ImageURL,
		RequiredTierLevel: req.RequiredTierLevel,
	})
	if err != nil {
		switch {
		case errors.Is(err, post.ErrInvalidTierLevel):
			respondError(c, apierrors.NewValidationError("Required tier level must be between 0 and 3"))
		case errors.Is(err, post.ErrTitleRequired):
			respondError(c, apierrors.NewValidationError("Post title is required"))
		case errors.Is(err, post.ErrSlugTaken):
			respondError(c, apierrors.NewInvalidRequestError("A post with this slug already exists"))
		case errors.Is(err, post.ErrCreatorNotFound), errors.Is(err, post.ErrNotACreator):
			respondError(c, apierrors.ErrCreatorNotFoundError)
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// handleDeletePost removes one of the caller's posts
func (s *APIServer) handleDeletePost(c *gin.Context) {
	creatorID := middleware.GetUserIDFromContext(c)

	postID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.postService.Delete(c.Request.Context(), creatorID, postID); err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			respondError(c, apierrors.ErrPostNotFoundError)
		} else {
			respondFallbackError(c, err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// handleListPosts returns a creator's posts as seen by the viewer.
// Gated posts the viewer cannot access come back as locked stubs with
// the content stripped.
func (s *APIServer) handleListPosts(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	viewerID := middleware.GetUserIDFromContext(c)

	views, err := s.postService.ListByCreator(c.Request.Context(), creatorID, viewerID)
	if err != nil {
		respondFallbackError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": views})
}

// handleGetPost returns a single post by slug, locked or not per the
// viewer's effective tier
func (s *APIServer) handleGetPost(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	viewerID := middleware.GetUserIDFromContext(c)

	view, err := s.postService.GetBySlug(c.Request.Context(), creatorID, c.Param("slug"), viewerID)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			respondError(c, apierrors.ErrPostNotFoundError)
		} else {
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

// handleListFeed returns a creator's live feed for the viewer. A viewer
// below the feed gate gets a locked listing with no messages, not an
// error.
func (s *APIServer) handleListFeed(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	viewerID := middleware.GetUserIDFromContext(c)

	listing, err := s.feedService.List(c.Request.Context(), creatorID, viewerID)
	if err != nil {
		if errors.Is(err, feed.ErrCreatorNotFound) {
			respondError(c, apierrors.ErrCreatorNotFoundError)
		} else {
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, listing)
}

// handlePostToFeed publishes a message on the caller's own live feed
func (s *APIServer) handlePostToFeed(c *gin.Context) {
	creatorID := middleware.GetUserIDFromContext(c)

	var req postToFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	msg, err := s.feedService.Post(c.Request.Context(), creatorID, creatorID, req.Body, req.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrBodyRequired):
			respondError(c, apierrors.NewValidationError("Feed message body is required"))
		case errors.Is(err, feed.ErrCreatorNotFound):
			respondError(c, apierrors.ErrCreatorNotFoundError)
		default:
			respondFallbackError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}
