package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/fanlinkhq/fanlink/internal/store"
)

type fakeStore struct {
	profiles map[uuid.UUID]*models.Profile
	subs     map[[2]uuid.UUID]*models.Subscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[uuid.UUID]*models.Profile),
		subs:     make(map[[2]uuid.UUID]*models.Subscription),
	}
}

func (f *fakeStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpsertSubscription(_ context.Context, sub *models.Subscription) (*models.Subscription, error) {
	stored := *sub
	f.subs[[2]uuid.UUID{sub.SubscriberID, sub.CreatorID}] = &stored
	return &stored, nil
}

func (f *fakeStore) DeleteSubscription(_ context.Context, subscriberID, creatorID uuid.UUID) error {
	delete(f.subs, [2]uuid.UUID{subscriberID, creatorID})
	return nil
}

func (f *fakeStore) ListSubscriptionsBySubscriber(_ context.Context, subscriberID uuid.UUID) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.SubscriberID == subscriberID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSubscriptionsByCreator(_ context.Context, creatorID uuid.UUID) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.CreatorID == creatorID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeStore) ListActiveSubscriptionsByCreator(_ context.Context, creatorID uuid.UUID, now time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.CreatorID == creatorID && sub.ActiveAt(now) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeStore) GetProfilesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	var out []models.Profile
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

const validity = 30 * 24 * time.Hour

func setup() (*Service, *fakeStore, uuid.UUID, uuid.UUID, time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fs := newFakeStore()
	fan, creator := uuid.New(), uuid.New()
	fs.profiles[fan] = &models.Profile{ID: fan, Role: models.RoleFan}
	fs.profiles[creator] = &models.Profile{ID: creator, Role: models.RoleCreator}

	svc := NewService(fs, validity).WithClock(func() time.Time { return now })
	return svc, fs, fan, creator, now
}

func TestSubscribe(t *testing.T) {
	t.Run("writes the row with the full validity window", func(t *testing.T) {
		svc, _, fan, creator, now := setup()

		sub, err := svc.Subscribe(context.Background(), fan, creator, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sub.TierLevel != 2 {
			t.Errorf("TierLevel = %d, want 2", sub.TierLevel)
		}
		if !sub.ExpiresAt.Equal(now.Add(validity)) {
			t.Errorf("ExpiresAt = %v, want %v", sub.ExpiresAt, now.Add(validity))
		}
	})

	t.Run("re-subscribing overwrites tier and restarts expiry", func(t *testing.T) {
		svc, fs, fan, creator, now := setup()
		ctx := context.Background()

		if _, err := svc.Subscribe(ctx, fan, creator, 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		later := now.Add(10 * 24 * time.Hour)
		svc.WithClock(func() time.Time { return later })

		sub, err := svc.Subscribe(ctx, fan, creator, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sub.TierLevel != 1 {
			t.Errorf("downgrade must overwrite the level, got %d", sub.TierLevel)
		}
		if !sub.ExpiresAt.Equal(later.Add(validity)) {
			t.Errorf("expiry must restart from the new write, got %v", sub.ExpiresAt)
		}
		if len(fs.subs) != 1 {
			t.Errorf("pair must keep a single row, got %d", len(fs.subs))
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, fan, creator, _ := setup()
		ctx := context.Background()

		for _, level := range []int{0, 4, -2} {
			if _, err := svc.Subscribe(ctx, fan, creator, level); !errors.Is(err, ErrInvalidTierLevel) {
				t.Errorf("level %d: got %v, want ErrInvalidTierLevel", level, err)
			}
		}
		if _, err := svc.Subscribe(ctx, creator, creator, 1); !errors.Is(err, ErrSelfSubscription) {
			t.Errorf("got %v, want ErrSelfSubscription", err)
		}
		if _, err := svc.Subscribe(ctx, fan, uuid.New(), 1); !errors.Is(err, ErrCreatorNotFound) {
			t.Errorf("got %v, want ErrCreatorNotFound", err)
		}
		if _, err := svc.Subscribe(ctx, creator, fan, 1); !errors.Is(err, ErrNotACreator) {
			t.Errorf("got %v, want ErrNotACreator", err)
		}
	})
}

// TestProperty_Subscribe_LastWriteWins verifies that after any sequence
// of subscribes for the same pair, the row reflects exactly the final
// write.
func TestProperty_Subscribe_LastWriteWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		svc, fs, fan, creator, now := setup()
		ctx := context.Background()

		levels := rapid.SliceOfN(rapid.IntRange(1, 3), 1, 10).Draw(rt, "levels")

		var lastLevel int
		var lastTime time.Time
		for i, level := range levels {
			at := now.Add(time.Duration(i) * time.Hour)
			svc.WithClock(func() time.Time { return at })
			if _, err := svc.Subscribe(ctx, fan, creator, level); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			lastLevel, lastTime = level, at
		}

		if len(fs.subs) != 1 {
			t.Fatalf("PROPERTY VIOLATION: %d rows for one pair, want 1", len(fs.subs))
		}
		row := fs.subs[[2]uuid.UUID{fan, creator}]
		if row.TierLevel != lastLevel {
			t.Fatalf("PROPERTY VIOLATION: row level %d, want last written %d", row.TierLevel, lastLevel)
		}
		if !row.ExpiresAt.Equal(lastTime.Add(validity)) {
			t.Fatalf("PROPERTY VIOLATION: expiry %v does not match last write at %v", row.ExpiresAt, lastTime)
		}
	})
}

func TestUnsubscribe_AbsentRowIsNoop(t *testing.T) {
	svc, _, fan, creator, _ := setup()

	if err := svc.Unsubscribe(context.Background(), fan, creator); err != nil {
		t.Errorf("unsubscribe without a row must be a no-op, got %v", err)
	}
}

func TestStatsByTier_CountsOnlyActive(t *testing.T) {
	svc, fs, _, creator, now := setup()

	for i := 0; i < 3; i++ {
		id := uuid.New()
		fs.subs[[2]uuid.UUID{id, creator}] = &models.Subscription{
			SubscriberID: id, CreatorID: creator, TierLevel: 1, ExpiresAt: now.Add(time.Hour),
		}
	}
	expired := uuid.New()
	fs.subs[[2]uuid.UUID{expired, creator}] = &models.Subscription{
		SubscriberID: expired, CreatorID: creator, TierLevel: 3, ExpiresAt: now.Add(-time.Hour),
	}

	stats, err := svc.StatsByTier(context.Background(), creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats[1] != 3 {
		t.Errorf("stats[1] = %d, want 3", stats[1])
	}
	if stats[3] != 0 {
		t.Errorf("expired subscriptions must not count, stats[3] = %d", stats[3])
	}
}

func TestActiveSubscriberProfiles(t *testing.T) {
	svc, fs, fan, creator, now := setup()

	fs.subs[[2]uuid.UUID{fan, creator}] = &models.Subscription{
		SubscriberID: fan, CreatorID: creator, TierLevel: 2, ExpiresAt: now.Add(time.Hour),
	}

	profiles, err := svc.ActiveSubscriberProfiles(context.Background(), creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != fan {
		t.Errorf("unexpected profiles: %+v", profiles)
	}
}
