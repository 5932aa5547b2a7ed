// Package auth verifies the session token sent in the Authorization header.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/google/uuid"
)

// Principal is the verified caller of a request
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Role  string    `json:"role,omitempty"`
	// ExpiresAt is the session expiry when the verifier knows it
	ExpiresAt time.Time `json:"expires_at"`
}

// Verifier resolves a bearer token to its principal. Any failure means the
// caller is not authenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// VerifierFunc adapts a function to the Verifier interface
type VerifierFunc func(ctx context.Context, token string) (*Principal, error)

// Verify implements Verifier
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Principal, error) {
	return f(ctx, token)
}

// NewVerifier builds the verifier selected by cfg.Mode, wrapped in the
// Redis cache when enabled
func NewVerifier(cfg config.AuthConfig, logger *errors.Logger) (Verifier, error) {
	var verifier Verifier
	switch cfg.Mode {
	case "supabase":
		if cfg.SupabaseURL == "" {
			logger.Warn("Supabase URL is not configured, every request will be rejected")
		}
		verifier = NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.Timeout, nil)
	case "jwt":
		v, err := NewJWTVerifier(cfg.JWTSecret, cfg.Audience, cfg.Leeway)
		if err != nil {
			return nil, err
		}
		verifier = v
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported auth mode: %s", cfg.Mode), nil)
	}

	if !cfg.Cache.Enabled {
		return verifier, nil
	}

	cache, err := NewRedisCache(cfg.Cache.RedisURL)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Failed to configure auth cache", err)
	}
	logger.Info("Auth cache enabled", "ttl", cfg.Cache.TTL, "key_prefix", cfg.Cache.KeyPrefix)
	return NewCachedVerifier(verifier, cache, cfg.Cache.KeyPrefix, cfg.Cache.TTL, logger), nil
}

// BearerToken strips the "Bearer " prefix from an Authorization header value
func BearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) >= 6 && strings.EqualFold(token[:6], "bearer") && (len(token) == 6 || token[6] == ' ') {
		token = strings.TrimSpace(token[6:])
	}
	return token
}

// MaskToken shortens a token for logging
func MaskToken(token string) string {
	switch {
	case len(token) > 12:
		return token[:6] + "..." + token[len(token)-4:]
	case len(token) > 0:
		return "****"
	default:
		return ""
	}
}

func unauthorized(reason string, cause error) *errors.AppError {
	return errors.NewAuthError(errors.ErrCodeUnauthorized, "Unauthorized", cause).
		WithContext("reason", reason)
}
