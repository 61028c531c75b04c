// Package messaging implements conversations and direct messages gated by
// the access evaluator's messaging rule. Permission is re-derived at send
// time, never trusted from an earlier check, since subscriptions expire
// continuously in wall-clock time.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/fanlinkhq/fanlink/internal/access"
	"github.com/fanlinkhq/fanlink/internal/cache"
	"github.com/fanlinkhq/fanlink/internal/logging"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/monitoring"
	"github.com/fanlinkhq/fanlink/internal/store"
	"github.com/google/uuid"
)

// Service errors
var (
	ErrPermissionDenied     = errors.New("sender is not allowed to message this recipient")
	ErrMessageEmpty         = errors.New("message text is empty")
	ErrMessageTooLong       = errors.New("message text exceeds the maximum length")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant of the conversation")
	ErrSelfConversation     = errors.New("cannot open a conversation with yourself")
)

// Store is the slice of the entity store the messaging subsystem uses
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error)
	CreateConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error
	CreateDirectMessage(ctx context.Context, m *models.DirectMessage) (*models.DirectMessage, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.DirectMessage, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*models.DirectMessage, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error)
	UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service handles conversation and message operations
type Service struct {
	store     Store
	evaluator *access.Evaluator
	badge     *cache.UnreadBadge
	maxLength int
	pageLimit int
	now       func() time.Time
}

// NewService creates a messaging service. badge may be nil; unread totals
// then always count in the store.
func NewService(st Store, evaluator *access.Evaluator, badge *cache.UnreadBadge, maxLength, pageLimit int) *Service {
	return &Service{
		store:     st,
		evaluator: evaluator,
		badge:     badge,
		maxLength: maxLength,
		pageLimit: pageLimit,
		now:       time.Now,
	}
}

// WithClock overrides the service clock
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetOrCreateConversation returns the single conversation for the
// unordered pair, creating it on first contact. The lookup is commutative
// and creation is race-safe: the store's uniqueness constraint over the
// canonical pair ordering guarantees at most one row even when both sides
// open the conversation simultaneously.
func (s *Service) GetOrCreateConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	if a == uuid.Nil || b == uuid.Nil {
		return nil, ErrConversationNotFound
	}
	if a == b {
		return nil, ErrSelfConversation
	}

	conv, err := s.store.FindConversation(ctx, a, b)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	conv, err = s.store.CreateConversation(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	monitoring.RecordConversationOpened()
	return conv, nil
}

// Send delivers a direct message. The messaging permission is re-checked
// here, at send time; callers that validated earlier are not trusted. The
// text bound is enforced server-side regardless of any input widget.
func (s *Service) Send(ctx context.Context, conversationID, senderID, recipientID uuid.UUID, text string) (*models.DirectMessage, error) {
	if text == "" {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return nil, ErrMessageTooLong
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(senderID) || !conv.HasParticipant(recipientID) {
		return nil, ErrNotParticipant
	}

	allowed, err := s.evaluator.CanSendMessage(ctx, senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate messaging permission: %w", err)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	msg, err := s.store.CreateDirectMessage(ctx, &models.DirectMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		MessageText:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	if err := s.store.TouchConversation(ctx, conversationID, msg.CreatedAt); err != nil {
		// The message is already delivered; stale list ordering self-heals
		// on the next send.
		logging.LogError(err, "", "messaging", "touch_conversation")
	}

	s.badge.Invalidate(ctx, recipientID)
	monitoring.RecordMessageSent()
	logging.LogMessageEvent("send", conversationID.String(), senderID.String(), recipientID.String())
	return msg, nil
}

// MarkConversationRead stamps every unread message addressed to the
// reader in the conversation. Idempotent: a second call finds nothing
// unread and changes nothing.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if !conv.HasParticipant(readerID) {
		return ErrNotParticipant
	}

	stamped, err := s.store.MarkConversationRead(ctx, conversationID, readerID, s.now())
	if err != nil {
		return err
	}
	if stamped > 0 {
		s.badge.Invalidate(ctx, readerID)
		monitoring.RecordReadReceipts(stamped)
		logging.LogMessageEvent("mark_read", conversationID.String(), "", readerID.String())
	}
	return nil
}

// Conversation returns a conversation the user participates in
func (s *Service) Conversation(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// Messages returns the conversation's messages in chronological order.
// Only participants may read.
func (s *Service) Messages(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]models.DirectMessage, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}
	return s.store.ListMessages(ctx, conversationID, limit)
}

// ListConversations returns the user's conversations ordered by last
// activity, hydrated with the other participant's profile, the latest
// message and the unread count. Conversations whose counterpart profile
// vanished are skipped rather than failing the listing.
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	conversations, err := s.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		conv := conversations[i]

		other, err := s.store.GetProfile(ctx, conv.OtherParticipant(userID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}

		last, err := s.store.LastMessage(ctx, conv.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		unread, err := s.store.UnreadCount(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, models.ConversationSummary{
			Conversation: conv,
			OtherProfile: other,
			LastMessage:  last,
			UnreadCount:  unread,
		})
	}
	return summaries, nil
}

// UnreadTotal returns the user's total unread count. Served from the
// badge cache when warm; staleness is bounded by the badge TTL and the
// cache is invalidated on every send and read receipt.
func (s *Service) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	if count, ok := s.badge.Get(ctx, userID); ok {
		return count, nil
	}
	count, err := s.store.UnreadTotal(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.badge.Set(ctx, userID, count)
	return count, nil
}
