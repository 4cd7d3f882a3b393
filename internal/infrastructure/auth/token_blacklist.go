package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist invalidates JWT tokens before their natural expiry. A
// password change invalidates every token issued earlier for that user.
type TokenBlacklist interface {
	// RevokeToken marks a single token's JTI as revoked until ttl elapses.
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error

	// IsTokenRevoked reports whether a JTI has been revoked.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUserTokens records an invalidation cutoff for a user. Tokens
	// issued at or before the cutoff are treated as revoked.
	RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserTokenRevoked reports whether a token issued at issuedAt falls
	// before the user's invalidation cutoff.
	IsUserTokenRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)

	// ExemptToken marks a JTI as surviving user-level cutoffs. Used for the
	// token that performed a password change, so that session stays alive
	// while every other session's token is revoked.
	ExemptToken(ctx context.Context, jti string, ttl time.Duration) error

	// IsTokenExempt reports whether a JTI has been exempted from user-level
	// cutoffs.
	IsTokenExempt(ctx context.Context, jti string) (bool, error)
}

const blacklistKeyPrefix = "mediavault:token:revoked:"

// RedisTokenBlacklist implements TokenBlacklist backed by Redis.
type RedisTokenBlacklist struct {
	client *redis.Client
}

// NewRedisTokenBlacklist wraps an existing Redis client.
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func jtiKey(jti string) string {
	return blacklistKeyPrefix + "jti:" + jti
}

func userKey(userID string) string {
	return blacklistKeyPrefix + "user:" + userID
}

func exemptKey(jti string) string {
	return blacklistKeyPrefix + "exempt:" + jti
}

func (b *RedisTokenBlacklist) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return exists > 0, nil
}

func (b *RedisTokenBlacklist) RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error {
	cutoff := time.Now().UnixNano()
	if err := b.client.Set(ctx, userKey(userID), cutoff, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsUserTokenRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, userKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token revocation: %w", err)
	}

	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation cutoff: %w", err)
	}
	return issuedAt.UnixNano() <= cutoff, nil
}

func (b *RedisTokenBlacklist) ExemptToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, exemptKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to exempt token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsTokenExempt(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, exemptKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token exemption: %w", err)
	}
	return exists > 0, nil
}

// Close closes the underlying Redis client.
func (b *RedisTokenBlacklist) Close() error {
	return b.client.Close()
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// InMemoryTokenBlacklist is a single-process implementation for tests and
// development. Not suitable behind a load balancer.
type InMemoryTokenBlacklist struct {
	mu      sync.RWMutex
	jtis    map[string]time.Time // JTI -> revocation expiry
	cutoffs map[string]time.Time // userID -> invalidation cutoff
	exempt  map[string]time.Time // JTI -> exemption expiry
}

// NewInMemoryTokenBlacklist creates an empty in-memory blacklist.
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		jtis:    make(map[string]time.Time),
		cutoffs: make(map[string]time.Time),
		exempt:  make(map[string]time.Time),
	}
}

func (b *InMemoryTokenBlacklist) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = time.Now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.jtis[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.jtis, jti)
		return false, nil
	}
	return true, nil
}

func (b *InMemoryTokenBlacklist) RevokeUserTokens(_ context.Context, userID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cutoffs[userID] = time.Now()
	return nil
}

func (b *InMemoryTokenBlacklist) IsUserTokenRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cutoff, ok := b.cutoffs[userID]
	if !ok {
		return false, nil
	}
	return issuedAt.UnixNano() <= cutoff.UnixNano(), nil
}

func (b *InMemoryTokenBlacklist) ExemptToken(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exempt[jti] = time.Now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsTokenExempt(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.exempt[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.exempt, jti)
		return false, nil
	}
	return true, nil
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
