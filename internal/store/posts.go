package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, creator_id, slug, title, content, image_url, required_tier_level, created_at`

// CreatePost inserts a new post
func (s *Store) CreatePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (creator_id, slug, title, content, image_url, required_tier_level)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+postColumns,
		p.CreatorID, p.Slug, p.Title, p.Content, p.ImageURL, p.RequiredTierLevel,
	)
	return scanPost(row)
}

// GetPostBySlug fetches one post by its creator-scoped slug
func (s *Store) GetPostBySlug(ctx context.Context, creatorID uuid.UUID, slug string) (*models.Post, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE creator_id = $1 AND slug = $2`,
		creatorID, slug)
	return scanPost(row)
}

// ListPostsByCreator returns a creator's posts, newest first
func (s *Store) ListPostsByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Post, error) {
	if !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE creator_id = $1
		ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.CreatorID, &p.Slug, &p.Title, &p.Content, &p.ImageURL, &p.RequiredTierLevel, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// DeletePost removes a post owned by creatorID; returns ErrNotFound when
// no such post exists under that owner
func (s *Store) DeletePost(ctx context.Context, creatorID, postID uuid.UUID) error {
	if !s.ready() {
		return ErrNotConfigured
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1 AND creator_id = $2`, postID, creatorID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.CreatorID, &p.Slug, &p.Title, &p.Content, &p.ImageURL, &p.RequiredTierLevel, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
