package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCartStore keeps one JSON cart per user under a TTL. Carts are not
// transactionally linked to inventory; the order transaction re-validates
// everything at checkout.
type RedisCartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCartStore(rdb *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{rdb: rdb, ttl: ttl}
}

var _ usecase.CartStore = (*RedisCartStore)(nil)

func cartKey(userID string) string { return "cart:" + userID }

// Get returns an empty cart (not an error) when none is stored.
func (s *RedisCartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	raw, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart get: %w", err)
	}
	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("cart decode: %w", err)
	}
	return &cart, nil
}

func (s *RedisCartStore) Set(ctx context.Context, cart *domain.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("cart encode: %w", err)
	}
	return s.rdb.Set(ctx, cartKey(cart.UserID), raw, s.ttl).Err()
}

func (s *RedisCartStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, cartKey(userID)).Err()
}
