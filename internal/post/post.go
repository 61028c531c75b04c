// Package post manages tiered posts. Visibility is computed at read time
// on every fetch - never persisted - because subscriptions expire
// asynchronously from content changes. Filtering happens server-side:
// under-tier viewers receive locked stubs without content, never bodies.
package post

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/fanlinkhq/fanlink/internal/access"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/google/uuid"
)

// Service errors
var (
	ErrInvalidTierLevel = errors.New("required tier level must be between 0 and 3")
	ErrTitleRequired    = errors.New("post title is required")
	ErrCreatorNotFound  = errors.New("creator not found")
	ErrNotACreator      = errors.New("profile is not a creator")
	ErrPostNotFound     = errors.New("post not found")
	ErrSlugTaken        = errors.New("slug already used by this creator")
)

// Store is the slice of the entity store the post service uses
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	CreatePost(ctx context.Context, p *models.Post) (*models.Post, error)
	GetPostBySlug(ctx context.Context, creatorID uuid.UUID, slug string) (*models.Post, error)
	ListPostsByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Post, error)
	DeletePost(ctx context.Context, creatorID, postID uuid.UUID) error
}

// View is a post as seen by one viewer. For a locked post the content and
// image are stripped before the view leaves the server.
type View struct {
	ID                uuid.UUID `json:"id"`
	CreatorID         uuid.UUID `json:"creator_id"`
	Slug              string    `json:"slug"`
	Title             string    `json:"title"`
	Content           *string   `json:"content,omitempty"`
	ImageURL          *string   `json:"image_url,omitempty"`
	RequiredTierLevel int       `json:"required_tier_level"`
	Locked            bool      `json:"locked"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateInput carries the fields for a new post
type CreateInput struct {
	Slug              string
	Title             string
	Content           *string
	ImageURL          *string
	RequiredTierLevel int
}

// Service handles post operations
type Service struct {
	store     Store
	evaluator *access.Evaluator
}

// NewService creates a post service
func NewService(st Store, evaluator *access.Evaluator) *Service {
	return &Service{store: st, evaluator: evaluator}
}

// Create publishes a post under the creator. Posting under a nonexistent
// creator is a hard failure. The slug is derived from the title when not
// supplied.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, input CreateInput) (*models.Post, error) {
	if !models.ValidGateLevel(input.RequiredTierLevel) {
		return nil, ErrInvalidTierLevel
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
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

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if existing, err := s.store.GetPostBySlug(ctx, creatorID, slug); err == nil && existing != nil {
		return nil, ErrSlugTaken
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return s.store.CreatePost(ctx, &models.Post{
		CreatorID:         creatorID,
		Slug:              slug,
		Title:             title,
		Content:           input.Content,
		ImageURL:          input.ImageURL,
		RequiredTierLevel: input.RequiredTierLevel,
	})
}

// ListByCreator returns the creator's posts as views for the given viewer.
// The viewer's effective tier is resolved once for the listing and applied
// per post; anonymous viewers (uuid.Nil) see only public posts unlocked.
func (s *Service) ListByCreator(ctx context.Context, creatorID, viewerID uuid.UUID) ([]View, error) {
	posts, err := s.store.ListPostsByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	effective := s.effectiveTier(ctx, creatorID, viewerID)
	views := make([]View, 0, len(posts))
	for i := range posts {
		views = append(views, s.view(&posts[i], effective))
	}
	return views, nil
}

// GetBySlug returns one post as a view for the given viewer
func (s *Service) GetBySlug(ctx context.Context, creatorID uuid.UUID, slug string, viewerID uuid.UUID) (*View, error) {
	p, err := s.store.GetPostBySlug(ctx, creatorID, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	v := s.view(p, s.effectiveTier(ctx, creatorID, viewerID))
	return &v, nil
}

// Delete removes a post owned by the creator
func (s *Service) Delete(ctx context.Context, creatorID, postID uuid.UUID) error {
	err := s.store.DeletePost(ctx, creatorID, postID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}

func (s *Service) effectiveTier(ctx context.Context, creatorID, viewerID uuid.UUID) int {
	if viewerID == creatorID {
		// Creators always see their own content.
		return models.TierLevelMax
	}
	return s.evaluator.EffectiveTier(ctx, viewerID, creatorID)
}

func (s *Service) view(p *models.Post, effectiveTier int) View {
	v := View{
		ID:                p.ID,
		CreatorID:         p.CreatorID,
		Slug:              p.Slug,
		Title:             p.Title,
		RequiredTierLevel: p.RequiredTierLevel,
		CreatedAt:         p.CreatedAt,
	}
	if access.CanViewPost(p.RequiredTierLevel, effectiveTier) {
		v.Content = p.Content
		v.ImageURL = p.ImageURL
	} else {
		v.Locked = true
	}
	return v
}

// Slugify lowercases the title and collapses everything that is not a
// letter or digit into single dashes
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteRune('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
