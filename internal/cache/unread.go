package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fanlinkhq/fanlink/internal/monitoring"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// UnreadBadge caches per-user unread message totals. Clients poll the
// badge on a fixed interval, so a short TTL bounds staleness to that
// window; writes on the messaging path invalidate eagerly so a send or a
// read receipt shows up on the next poll. Redis being down degrades to
// counting in the database (fail open for reads).
type UnreadBadge struct {
	redis *Redis
	ttl   time.Duration
}

// NewUnreadBadge creates the badge cache with the given TTL
func NewUnreadBadge(r *Redis, ttl time.Duration) *UnreadBadge {
	return &UnreadBadge{redis: r, ttl: ttl}
}

func badgeKey(userID uuid.UUID) string {
	return fmt.Sprintf("unread:badge:%s", userID)
}

// Get returns the cached total, or ok=false on miss or Redis error
func (b *UnreadBadge) Get(ctx context.Context, userID uuid.UUID) (int, bool) {
	if b == nil || b.redis == nil {
		return 0, false
	}
	val, err := b.redis.Client.Get(ctx, badgeKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("Unread badge cache read failed")
		}
		monitoring.RecordCacheMiss("unread_badge")
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		monitoring.RecordCacheMiss("unread_badge")
		return 0, false
	}
	monitoring.RecordCacheHit("unread_badge")
	return count, true
}

// Set stores the total with the badge TTL; errors are logged, not surfaced
func (b *UnreadBadge) Set(ctx context.Context, userID uuid.UUID, count int) {
	if b == nil || b.redis == nil {
		return
	}
	if err := b.redis.Client.Set(ctx, badgeKey(userID), count, b.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("Unread badge cache write failed")
	}
}

// Invalidate drops the cached total so the next poll recounts
func (b *UnreadBadge) Invalidate(ctx context.Context, userID uuid.UUID) {
	if b == nil || b.redis == nil {
		return
	}
	if err := b.redis.Client.Del(ctx, badgeKey(userID)).Err(); err != nil {
		log.Warn().Err(err).Msg("Unread badge cache invalidation failed")
	}
}
