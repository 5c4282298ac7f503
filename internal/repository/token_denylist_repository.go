package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "jwt:denylist:"

// TokenDenylistRepository records revoked token IDs in Redis until they
// would have expired anyway.
type TokenDenylistRepository struct {
	client redis.Cmdable
}

// NewTokenDenylistRepository constructs the repository.
func NewTokenDenylistRepository(client redis.Cmdable) *TokenDenylistRepository {
	return &TokenDenylistRepository{client: client}
}

// Revoke denylists jti for ttl. A non-positive ttl is a no-op since the token
// has already expired.
func (r *TokenDenylistRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, denylistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is denylisted.
func (r *TokenDenylistRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis check token: %w", err)
	}
	return n > 0, nil
}
