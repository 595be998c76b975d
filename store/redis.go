package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials in Redis so several client processes on one
// workstation (CLI, agent, desktop shell) share one login. Keys are
// namespaced as "<prefix>:<key>".
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisStore creates a [RedisStore]. An empty prefix defaults to "labauth".
func NewRedisStore(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "labauth"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

// Get returns the value for key. Redis failures are logged and reported as
// absent.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("credential read failed", slog.String("key", key), slog.Any("error", err))
		}
		return "", false
	}
	return v, true
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.redis.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SetMany writes every value inside one MULTI/EXEC transaction.
func (s *RedisStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
