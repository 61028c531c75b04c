package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const feedColumns = `id, creator_id, author_id, body, image_url, created_at`

// CreateFeedMessage appends an entry to a creator's live feed
func (s *Store) CreateFeedMessage(ctx context.Context, m *models.FeedMessage) (*models.FeedMessage, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO feed_messages (creator_id, author_id, body, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING `+feedColumns,
		m.CreatorID, m.AuthorID, m.Body, m.ImageURL,
	)
	var out models.FeedMessage
	err := row.Scan(&out.ID, &out.CreatorID, &out.AuthorID, &out.Body, &out.ImageURL, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// ListFeedMessages returns a creator's feed in chronological order
func (s *Store) ListFeedMessages(ctx context.Context, creatorID uuid.UUID) ([]models.FeedMessage, error) {
	if !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+feedColumns+`
		FROM feed_messages
		WHERE creator_id = $1
		ORDER BY created_at`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed messages: %w", err)
	}
	defer rows.Close()

	var messages []models.FeedMessage
	for rows.Next() {
		var m models.FeedMessage
		if err := rows.Scan(&m.ID, &m.CreatorID, &m.AuthorID, &m.Body, &m.ImageURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
