package cache

import (
	"context"
	"errors"
	"time"

	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisNotificationDedup records order ids whose confirmation email went out,
// so redeliveries of the same order-paid event are acked without a second
// send. Best-effort: a redis outage degrades to plain at-least-once.
type RedisNotificationDedup struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisNotificationDedup(rdb *redis.Client, ttl time.Duration) *RedisNotificationDedup {
	return &RedisNotificationDedup{rdb: rdb, ttl: ttl}
}

var _ usecase.NotificationDedup = (*RedisNotificationDedup)(nil)

func (s *RedisNotificationDedup) AlreadySent(ctx context.Context, orderID string) (bool, error) {
	err := s.rdb.Get(ctx, "notified:order:"+orderID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisNotificationDedup) MarkSent(ctx context.Context, orderID string) error {
	return s.rdb.Set(ctx, "notified:order:"+orderID, "1", s.ttl).Err()
}
