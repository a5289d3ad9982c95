package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/pkg/logger"
)

const DefaultEventTTL = 5 * time.Minute

// Cache holds event status hints and rate-limit counters. It is never the
// source of truth: the store re-checks everything under the event lock.
type Cache struct {
	Client   *redis.Client
	EventTTL time.Duration
}

func New(addr, pass string, db int, eventTTL time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr, Password: pass, DB: db,
	})
	return NewWithClient(rdb, eventTTL)
}

func NewWithClient(rdb *redis.Client, eventTTL time.Duration) *Cache {
	if eventTTL <= 0 {
		eventTTL = DefaultEventTTL
	}
	return &Cache{Client: rdb, EventTTL: eventTTL}
}

var _ domain.Cache = (*Cache)(nil)

func eventStatusKey(id uuid.UUID) string { return "event:status:" + id.String() }

func (c *Cache) GetEventStatus(ctx context.Context, eventID uuid.UUID) (domain.EventStatus, error) {
	val, err := c.Client.Get(ctx, eventStatusKey(eventID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrCacheMiss
		}
		return "", err
	}
	return domain.EventStatus(val), nil
}

func (c *Cache) SetEventStatus(ctx context.Context, eventID uuid.UUID, status domain.EventStatus) error {
	return c.Client.Set(ctx, eventStatusKey(eventID), string(status), c.EventTTL).Err()
}

func (c *Cache) InvalidateEvent(ctx context.Context, eventID uuid.UUID) error {
	return c.Client.Del(ctx, eventStatusKey(eventID)).Err()
}

// AllowRequest: Simple Fixed Window Rate Limit
func (c *Cache) AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := "ratelimit:" + key
	count, err := c.Client.Incr(ctx, k).Result()
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Msg("rate limit check failed; allowing request")
		return true, nil // fail open
	}
	if count == 1 {
		_ = c.Client.Expire(ctx, k, window).Err()
	}
	return count <= int64(limit), nil
}

func (c *Cache) Ping(ctx context.Context) error { return c.Client.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.Client.Close() }
