package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, email, full_name, role, avatar_url, profile_image_url, banner_image_url, bio, feed_min_tier, messages_min_tier, created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.Email, &p.FullName, &p.Role, &p.AvatarURL, &p.ProfileImageURL,
		&p.BannerImageURL, &p.Bio, &p.FeedMinTier, &p.MessagesMinTier, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetProfile fetches a profile by id
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// UpsertProfile inserts or replaces a profile keyed on id
func (s *Store) UpsertProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name, role, avatar_url, profile_image_url, banner_image_url, bio, feed_min_tier, messages_min_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			role = EXCLUDED.role,
			avatar_url = EXCLUDED.avatar_url,
			profile_image_url = EXCLUDED.profile_image_url,
			banner_image_url = EXCLUDED.banner_image_url,
			bio = EXCLUDED.bio,
			feed_min_tier = EXCLUDED.feed_min_tier,
			messages_min_tier = EXCLUDED.messages_min_tier
		RETURNING `+profileColumns,
		p.ID, p.Email, p.FullName, p.Role, p.AvatarURL, p.ProfileImageURL,
		p.BannerImageURL, p.Bio, p.FeedMinTier, p.MessagesMinTier,
	)
	return scanProfile(row)
}

// ProfilePatch carries the updatable profile fields; nil means "leave as is"
type ProfilePatch struct {
	FullName        *string
	AvatarURL       *string
	ProfileImageURL *string
	BannerImageURL  *string
	Bio             *string
	FeedMinTier     *int
	MessagesMinTier *int
}

// UpdateProfile applies a partial update and returns the updated row
func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*models.Profile, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		UPDATE profiles SET
			full_name = COALESCE($2, full_name),
			avatar_url = COALESCE($3, avatar_url),
			profile_image_url = COALESCE($4, profile_image_url),
			banner_image_url = COALESCE($5, banner_image_url),
			bio = COALESCE($6, bio),
			feed_min_tier = COALESCE($7, feed_min_tier),
			messages_min_tier = COALESCE($8, messages_min_tier)
		WHERE id = $1
		RETURNING `+profileColumns,
		id, patch.FullName, patch.AvatarURL, patch.ProfileImageURL,
		patch.BannerImageURL, patch.Bio, patch.FeedMinTier, patch.MessagesMinTier,
	)
	return scanProfile(row)
}

// ListCreators returns all creator profiles, newest first
func (s *Store) ListCreators(ctx context.Context) ([]models.Profile, error) {
	if !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE role = 'creator'
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list creators: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

// GetProfilesByIDs fetches a batch of profiles; missing ids are skipped
func (s *Store) GetProfilesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	if len(ids) == 0 || !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profiles: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

func collectProfiles(rows pgx.Rows) ([]models.Profile, error) {
	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(
			&p.ID, &p.Email, &p.FullName, &p.Role, &p.AvatarURL, &p.ProfileImageURL,
			&p.BannerImageURL, &p.Bio, &p.FeedMinTier, &p.MessagesMinTier, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
