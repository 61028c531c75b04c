package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const conversationColumns = `id, participant1_id, participant2_id, last_message_at, created_at`

// FindConversation looks up the conversation for an unordered pair. The
// lookup is commutative: (a, b) and (b, a) find the same row.
func (s *Store) FindConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE LEAST(participant1_id, participant2_id) = LEAST($1::uuid, $2::uuid)
		  AND GREATEST(participant1_id, participant2_id) = GREATEST($1::uuid, $2::uuid)`,
		a, b)
	return scanConversation(row)
}

// CreateConversation inserts the row for an unordered pair. The unique
// index over the canonical ordering makes concurrent first contacts safe:
// the losing insert affects no rows and the caller re-reads.
func (s *Store) CreateConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO conversations (participant1_id, participant2_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		RETURNING `+conversationColumns,
		a, b)
	conv, err := scanConversation(row)
	if errors.Is(err, ErrNotFound) {
		// Lost the race; the winner's row is there to read.
		return s.FindConversation(ctx, a, b)
	}
	return conv, err
}

// GetConversation fetches a conversation by id
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

// ListConversationsForUser returns every conversation the user participates
// in, most recently active first
func (s *Store) ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	if !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE participant1_id = $1 OR participant2_id = $1
		ORDER BY last_message_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Participant1ID, &c.Participant2ID, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// TouchConversation bumps the last-activity marker used for list ordering
func (s *Store) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	if !s.ready() {
		return ErrNotConfigured
	}
	_, err := s.db.Exec(ctx, `UPDATE conversations SET last_message_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.ID, &c.Participant1ID, &c.Participant2ID, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
