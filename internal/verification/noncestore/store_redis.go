package noncestore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"beacon/pkg/platform/sentinel"
)

// Redis key prefix for consumed token nonces.
const nonceKeyPrefix = "verify:nonce:"

// RedisStore is the distributed consume-once implementation. SET NX with a
// TTL makes check-and-set a single atomic operation, so two instances
// racing on the same token cannot both succeed.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed nonce store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Consume atomically claims the nonce for the remaining token lifetime.
func (s *RedisStore) Consume(ctx context.Context, nonce string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, nonceKeyPrefix+nonce, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
