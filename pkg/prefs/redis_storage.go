package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps preference masks in Redis. Used by deployments that
// already run Redis and do not want preference reads hitting PostgreSQL.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage creates a Redis-backed preference storage.
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, prefix: "notify:prefs:"}
}

func (s *RedisStorage) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStorage) DisabledMask(ctx context.Context, userID int64) (uint64, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load preference mask: %w", err)
	}

	mask, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt preference mask for user %d: %w", userID, err)
	}
	return mask, nil
}

func (s *RedisStorage) SetDisabledMask(ctx context.Context, userID int64, mask uint64) error {
	if mask == 0 {
		if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
			return fmt.Errorf("clear preference mask: %w", err)
		}
		return nil
	}

	if err := s.client.Set(ctx, s.key(userID), strconv.FormatUint(mask, 10), 0).Err(); err != nil {
		return fmt.Errorf("store preference mask: %w", err)
	}
	return nil
}
