package messaging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fanlinkhq/fanlink/internal/access"
	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/store"
)

// fakeStore is an in-memory store for messaging tests. It mirrors the
// canonical pair ordering the SQL layer enforces.
type fakeStore struct {
	profiles      map[uuid.UUID]*models.Profile
	subscriptions map[[2]uuid.UUID]*models.Subscription
	conversations map[uuid.UUID]*models.Conversation
	messages      []*models.DirectMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:      make(map[uuid.UUID]*models.Profile),
		subscriptions: make(map[[2]uuid.UUID]*models.Subscription),
		conversations: make(map[uuid.UUID]*models.Conversation),
	}
}

func canonical(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

func (f *fakeStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetSubscription(_ context.Context, subscriberID, creatorID uuid.UUID) (*models.Subscription, error) {
	sub, ok := f.subscriptions[[2]uuid.UUID{subscriberID, creatorID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

func (f *fakeStore) FindConversation(_ context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	p1, p2 := canonical(a, b)
	for _, conv := range f.conversations {
		if conv.Participant1ID == p1 && conv.Participant2ID == p2 {
			return conv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	if existing, err := f.FindConversation(ctx, a, b); err == nil {
		return existing, nil
	}
	p1, p2 := canonical(a, b)
	conv := &models.Conversation{
		ID:             uuid.New(),
		Participant1ID: p1,
		Participant2ID: p2,
		CreatedAt:      time.Now(),
	}
	f.conversations[conv.ID] = conv
	return conv, nil
}

func (f *fakeStore) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return conv, nil
}

func (f *fakeStore) ListConversationsForUser(_ context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, conv := range f.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (f *fakeStore) TouchConversation(_ context.Context, id uuid.UUID, at time.Time) error {
	conv, ok := f.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	conv.LastMessageAt = at
	return nil
}

func (f *fakeStore) CreateDirectMessage(_ context.Context, m *models.DirectMessage) (*models.DirectMessage, error) {
	stored := *m
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	f.messages = append(f.messages, &stored)
	return &stored, nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]models.DirectMessage, error) {
	var out []models.DirectMessage
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) LastMessage(_ context.Context, conversationID uuid.UUID) (*models.DirectMessage, error) {
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].ConversationID == conversationID {
			return f.messages[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) MarkConversationRead(_ context.Context, conversationID, readerID uuid.UUID, at time.Time) (int64, error) {
	var stamped int64
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.RecipientID == readerID && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			stamped++
		}
	}
	return stamped, nil
}

func (f *fakeStore) UnreadCount(_ context.Context, conversationID, userID uuid.UUID) (int, error) {
	count := 0
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.RecipientID == userID && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) UnreadTotal(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, m := range f.messages {
		if m.RecipientID == userID && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

// fixture wires a fan subscribed to a creator, with the subscription
// active at the fixed test clock
type fixture struct {
	svc     *Service
	store   *fakeStore
	fan     uuid.UUID
	creator uuid.UUID
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fs := newFakeStore()
	fan, creator := uuid.New(), uuid.New()
	fs.profiles[fan] = &models.Profile{ID: fan, Role: models.RoleFan}
	fs.profiles[creator] = &models.Profile{ID: creator, Role: models.RoleCreator, MessagesMinTier: 1}
	fs.subscriptions[[2]uuid.UUID{fan, creator}] = &models.Subscription{
		SubscriberID: fan,
		CreatorID:    creator,
		TierLevel:    2,
		ExpiresAt:    now.Add(24 * time.Hour),
	}

	clock := func() time.Time { return now }
	evaluator := access.NewEvaluator(fs, fs).WithClock(clock)
	svc := NewService(fs, evaluator, nil, 5000, 50).WithClock(clock)

	return &fixture{svc: svc, store: fs, fan: fan, creator: creator, now: now}
}

func TestGetOrCreateConversation_Commutative(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := fx.svc.GetOrCreateConversation(ctx, fx.creator, fx.fan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("swapped arguments produced different conversations: %s vs %s", first.ID, second.ID)
	}
	if len(fx.store.conversations) != 1 {
		t.Errorf("expected exactly one conversation, got %d", len(fx.store.conversations))
	}
}

func TestGetOrCreateConversation_SelfRejected(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.svc.GetOrCreateConversation(context.Background(), fx.fan, fx.fan); !errors.Is(err, ErrSelfConversation) {
		t.Errorf("got %v, want ErrSelfConversation", err)
	}
}

func TestSend(t *testing.T) {
	t.Run("delivers when the rule allows", func(t *testing.T) {
		fx := newFixture(t)
		ctx := context.Background()
		conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

		msg, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.SenderID != fx.fan || msg.RecipientID != fx.creator {
			t.Errorf("unexpected message endpoints: %+v", msg)
		}
		if msg.ReadAt != nil {
			t.Error("new message must start unread")
		}
	})

	t.Run("denies when the subscription has lapsed", func(t *testing.T) {
		fx := newFixture(t)
		ctx := context.Background()
		conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

		// The conversation stays open; only sending is gated.
		fx.store.subscriptions[[2]uuid.UUID{fx.fan, fx.creator}].ExpiresAt = fx.now.Add(-time.Minute)

		if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, "hello"); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("got %v, want ErrPermissionDenied", err)
		}
		if len(fx.store.messages) != 0 {
			t.Error("denied send must not persist a message")
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		fx := newFixture(t)
		ctx := context.Background()
		conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

		if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, ""); !errors.Is(err, ErrMessageEmpty) {
			t.Errorf("got %v, want ErrMessageEmpty", err)
		}
	})

	t.Run("bounds text length in runes", func(t *testing.T) {
		fx := newFixture(t)
		ctx := context.Background()
		conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

		atLimit := strings.Repeat("ب", 5000)
		if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, atLimit); err != nil {
			t.Errorf("5000 runes must pass, got %v", err)
		}

		overLimit := strings.Repeat("ب", 5001)
		if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, overLimit); !errors.Is(err, ErrMessageTooLong) {
			t.Errorf("got %v, want ErrMessageTooLong", err)
		}
	})

	t.Run("rejects non-participants", func(t *testing.T) {
		fx := newFixture(t)
		ctx := context.Background()
		conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

		outsider := uuid.New()
		if _, err := fx.svc.Send(ctx, conv.ID, outsider, fx.creator, "hi"); !errors.Is(err, ErrNotParticipant) {
			t.Errorf("got %v, want ErrNotParticipant", err)
		}
	})

	t.Run("unknown conversation", func(t *testing.T) {
		fx := newFixture(t)
		if _, err := fx.svc.Send(context.Background(), uuid.New(), fx.fan, fx.creator, "hi"); !errors.Is(err, ErrConversationNotFound) {
			t.Errorf("got %v, want ErrConversationNotFound", err)
		}
	})
}

func TestMessages_ReturnsOldestFirst(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

	for _, text := range []string{"first", "second", "third", "fourth"} {
		if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	page, err := fx.svc.Messages(ctx, conv.ID, fx.fan, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page))
	}
	for i, want := range []string{"first", "second", "third"} {
		if page[i].MessageText != want {
			t.Errorf("message %d: got %q, want %q", i, page[i].MessageText, want)
		}
	}
}

func TestMarkConversationRead_Idempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

	for i := 0; i < 3; i++ {
		if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, "hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := fx.svc.MarkConversationRead(ctx, conv.ID, fx.creator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstStamps := make([]time.Time, 0, 3)
	for _, m := range fx.store.messages {
		if m.ReadAt == nil {
			t.Fatal("message left unread after mark-read")
		}
		firstStamps = append(firstStamps, *m.ReadAt)
	}

	// Second call finds nothing unread and must not move timestamps.
	if err := fx.svc.MarkConversationRead(ctx, conv.ID, fx.creator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, m := range fx.store.messages {
		if !m.ReadAt.Equal(firstStamps[i]) {
			t.Error("repeated mark-read must not re-stamp messages")
		}
	}
}

func TestMarkConversationRead_OnlyStampsIncoming(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

	if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, "from fan"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fx.svc.Send(ctx, conv.ID, fx.creator, fx.fan, "from creator"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := fx.svc.MarkConversationRead(ctx, conv.ID, fx.creator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, m := range fx.store.messages {
		incoming := m.RecipientID == fx.creator
		if incoming && m.ReadAt == nil {
			t.Error("incoming message left unread")
		}
		if !incoming && m.ReadAt != nil {
			t.Error("reader's own outgoing message must stay unread for the other side")
		}
	}
}

func TestMarkConversationRead_NonParticipant(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

	if err := fx.svc.MarkConversationRead(ctx, conv.ID, uuid.New()); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("got %v, want ErrNotParticipant", err)
	}
}

func TestUnreadTotal(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

	for i := 0; i < 4; i++ {
		if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, "hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	total, err := fx.svc.UnreadTotal(ctx, fx.creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 {
		t.Errorf("UnreadTotal() = %d, want 4", total)
	}

	if err := fx.svc.MarkConversationRead(ctx, conv.ID, fx.creator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total, err = fx.svc.UnreadTotal(ctx, fx.creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 {
		t.Errorf("UnreadTotal() after read = %d, want 0", total)
	}
}

func TestListConversations_Hydration(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	conv, _ := fx.svc.GetOrCreateConversation(ctx, fx.fan, fx.creator)

	if _, err := fx.svc.Send(ctx, conv.ID, fx.fan, fx.creator, "latest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summaries, err := fx.svc.ListConversations(ctx, fx.creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(summaries))
	}

	summary := summaries[0]
	if summary.OtherProfile == nil || summary.OtherProfile.ID != fx.fan {
		t.Error("summary must carry the other participant's profile")
	}
	if summary.LastMessage == nil || summary.LastMessage.MessageText != "latest" {
		t.Error("summary must carry the latest message")
	}
	if summary.UnreadCount != 1 {
		t.Errorf("UnreadCount = %d, want 1", summary.UnreadCount)
	}
}
