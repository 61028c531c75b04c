// Package feed manages a creator's live feed. Unlike posts, feed entries
// are not gated individually: the creator profile's feed_min_tier setting
// gates the whole feed, re-evaluated on every read.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fanlinkhq/fanlink/internal/access"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/google/uuid"
)

// Service errors
var (
	ErrBodyRequired    = errors.New("feed message body is required")
	ErrCreatorNotFound = errors.New("creator not found")
	ErrNotFeedOwner    = errors.New("only the creator can post to their feed")
)

// Store is the slice of the entity store the feed uses
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	CreateFeedMessage(ctx context.Context, m *models.FeedMessage) (*models.FeedMessage, error)
	ListFeedMessages(ctx context.Context, creatorID uuid.UUID) ([]models.FeedMessage, error)
}

// Listing is a feed read result. Locked is set when the viewer does not
// meet the creator's feed gate; the messages are then withheld entirely.
type Listing struct {
	Messages    []models.FeedMessage `json:"messages"`
	Locked      bool                 `json:"locked"`
	FeedMinTier int                  `json:"feed_min_tier"`
}

// Service handles feed operations
type Service struct {
	store     Store
	evaluator *access.Evaluator
}

// NewService creates a feed service
func NewService(st Store, evaluator *access.Evaluator) *Service {
	return &Service{store: st, evaluator: evaluator}
}

// Post appends an entry to the creator's feed. Only the creator may post.
func (s *Service) Post(ctx context.Context, creatorID, authorID uuid.UUID, body string, imageURL *string) (*models.FeedMessage, error) {
	if authorID != creatorID {
		return nil, ErrNotFeedOwner
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrBodyRequired
	}

	creator, err := s.store.GetProfile(ctx, creatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}
	if !creator.IsCreator() {
		return nil, ErrCreatorNotFound
	}

	return s.store.CreateFeedMessage(ctx, &models.FeedMessage{
		CreatorID: creatorID,
		AuthorID:  authorID,
		Body:      body,
		ImageURL:  imageURL,
	})
}

// List returns the creator's feed for the given viewer. Viewers below the
// feed gate get a locked, empty listing rather than an error, so profile
// pages can render the upsell state.
func (s *Service) List(ctx context.Context, creatorID, viewerID uuid.UUID) (*Listing, error) {
	creator, err := s.store.GetProfile(ctx, creatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}

	if !s.evaluator.CanViewFeed(ctx, viewerID, creator) {
		return &Listing{Locked: true, FeedMinTier: creator.FeedMinTier}, nil
	}

	messages, err := s.store.ListFeedMessages(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	return &Listing{Messages: messages, FeedMinTier: creator.FeedMinTier}, nil
}
