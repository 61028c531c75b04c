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

const messageColumns = `id, conversation_id, sender_id, recipient_id, message_text, created_at, read_at`

// CreateDirectMessage inserts a message with read_at NULL
func (s *Store) CreateDirectMessage(ctx context.Context, m *models.DirectMessage) (*models.DirectMessage, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO direct_messages (conversation_id, sender_id, recipient_id, message_text)
		VALUES ($1, $2, $3, $4)
		RETURNING `+messageColumns,
		m.ConversationID, m.SenderID, m.RecipientID, m.MessageText,
	)
	return scanMessage(row)
}

// ListMessages returns a conversation's messages in chronological order
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.DirectMessage, error) {
	if !s.ready() {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM direct_messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.DirectMessage
	for rows.Next() {
		var m models.DirectMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID, &m.MessageText, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// LastMessage returns the most recent message in a conversation, or
// ErrNotFound for an empty conversation
func (s *Store) LastMessage(ctx context.Context, conversationID uuid.UUID) (*models.DirectMessage, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM direct_messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, conversationID)
	return scanMessage(row)
}

// MarkConversationRead stamps read_at on every unread message addressed to
// the reader. The set-if-null condition makes the operation idempotent and
// safe under concurrent calls: already-read messages are never restamped.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) (int64, error) {
	if !s.ready() {
		return 0, ErrNotConfigured
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE direct_messages
		SET read_at = $3
		WHERE conversation_id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		conversationID, readerID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UnreadCount returns the number of unread messages addressed to the user
// within one conversation
func (s *Store) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	if !s.ready() {
		return 0, nil
	}
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM direct_messages
		WHERE conversation_id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		conversationID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// UnreadTotal returns the number of unread messages addressed to the user
// across all conversations
func (s *Store) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	if !s.ready() {
		return 0, nil
	}
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM direct_messages
		WHERE recipient_id = $1 AND read_at IS NULL`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func scanMessage(row pgx.Row) (*models.DirectMessage, error) {
	var m models.DirectMessage
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID, &m.MessageText, &m.CreatedAt, &m.ReadAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
