package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps token and user under two keys that are written in one transaction.
type RedisStore struct {
	client   *redis.Client
	tokenKey string
	userKey  string
	ttl      time.Duration
}

// NewRedisStore uses <prefix>:token and <prefix>:user. A zero ttl never expires.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		tokenKey: prefix + ":token",
		userKey:  prefix + ":user",
		ttl:      ttl,
	}
}

// Load reads both keys.
func (s *RedisStore) Load(ctx context.Context) (Entry, error) {
	vals, err := s.client.MGet(ctx, s.tokenKey, s.userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("read credentials: %w", err)
	}
	var entry Entry
	if len(vals) == 2 {
		if token, ok := vals[0].(string); ok {
			entry.Token = token
		}
		if user, ok := vals[1].(string); ok && user != "" {
			entry.User = []byte(user)
		}
	}
	return entry, nil
}

// Save writes both keys in a MULTI/EXEC block.
func (s *RedisStore) Save(ctx context.Context, entry Entry) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey, entry.Token, s.ttl)
		pipe.Set(ctx, s.userKey, entry.User, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear deletes both keys in a MULTI/EXEC block.
func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey, s.userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
