package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"careerkit/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// TokenCache stores verified principals keyed by token hash
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// RedisCache is a TokenCache backed by Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects from a redis:// URL or a plain host:port
func NewRedisCache(redisURL string) (*RedisCache, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return &RedisCache{client: redis.NewClient(opt)}, nil
	}
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: redisURL})}, nil
}

// Get implements TokenCache
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set implements TokenCache
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Close implements TokenCache
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedVerifier remembers successful verifications for a short TTL, never
// past the session's own expiry. Rejections are never cached. A session
// revoked upstream stays accepted until its entry expires.
type CachedVerifier struct {
	next      Verifier
	cache     TokenCache
	keyPrefix string
	ttl       time.Duration
	logger    *errors.Logger
}

var _ Verifier = (*CachedVerifier)(nil)

// NewCachedVerifier wraps next with cache
func NewCachedVerifier(next Verifier, cache TokenCache, keyPrefix string, ttl time.Duration, logger *errors.Logger) *CachedVerifier {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedVerifier{
		next:      next,
		cache:     cache,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// Verify implements Verifier. Cache errors fall through to the wrapped verifier.
func (v *CachedVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	key := v.cacheKey(token)

	if cached, ok, err := v.cache.Get(ctx, key); err != nil {
		v.logger.Warn("Auth cache lookup failed", "error", err.Error())
	} else if ok {
		var principal Principal
		if err := json.Unmarshal([]byte(cached), &principal); err == nil {
			return &principal, nil
		}
		v.logger.Warn("Discarding malformed auth cache entry", "token", MaskToken(token))
	}

	principal, err := v.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := v.ttl
	if expiry := sessionExpiry(principal, token); !expiry.IsZero() {
		ttl = min(ttl, time.Until(expiry))
	}
	if ttl <= 0 {
		return principal, nil
	}

	encoded, err := json.Marshal(principal)
	if err == nil {
		err = v.cache.Set(ctx, key, string(encoded), ttl)
	}
	if err != nil {
		v.logger.Warn("Auth cache store failed", "error", err.Error())
	}
	return principal, nil
}

// Close closes the underlying cache
func (v *CachedVerifier) Close() error {
	return v.cache.Close()
}

// sessionExpiry returns the principal's expiry, else the exp claim of a
// JWT-shaped token. The token has already been verified by the wrapped
// verifier, so its claims are read without checking the signature.
func sessionExpiry(principal *Principal, token string) time.Time {
	if !principal.ExpiresAt.IsZero() {
		return principal.ExpiresAt
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (v *CachedVerifier) cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return v.keyPrefix + hex.EncodeToString(sum[:])
}
