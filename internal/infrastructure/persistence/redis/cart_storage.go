package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CartStorage keeps each cart document under cart:<owner>. Every write
// refreshes the TTL, so carts of inactive owners eventually expire.
type CartStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartStorage(conn *Connection, ttl time.Duration) *CartStorage {
	return &CartStorage{
		client: conn.GetClient(),
		ttl:    ttl,
	}
}

func (s *CartStorage) Get(ctx context.Context, ownerKey string) (string, bool, error) {
	value, err := s.client.Get(ctx, cartKey(ownerKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *CartStorage) Set(ctx context.Context, ownerKey, value string) error {
	return s.client.Set(ctx, cartKey(ownerKey), value, s.ttl).Err()
}

func cartKey(ownerKey string) string {
	return fmt.Sprintf("cart:%s", ownerKey)
}
