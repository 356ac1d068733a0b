package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker tracks bearer tokens that were invalidated before expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevoker stores revoked token ids with a TTL matching the token's remaining life.
type RedisRevoker struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisRevoker constructs a denylist on the given client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "auth:revoked:", now: time.Now}
}

// Revoke adds tokenID to the denylist until expiresAt.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether tokenID is on the denylist.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NoopRevoker never revokes; used when Redis is not configured.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }
