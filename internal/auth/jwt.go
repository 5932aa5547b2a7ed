package auth

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTVerifier validates Supabase access tokens locally with the project's
// HS256 secret
type JWTVerifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

var _ Verifier = (*JWTVerifier)(nil)

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTVerifier creates a verifier. An empty audience disables the aud check.
func NewJWTVerifier(secret, audience string, leeway time.Duration) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"auth.jwtSecret is required when auth.mode is jwt", nil)
	}
	return &JWTVerifier{
		secret:   []byte(secret),
		audience: audience,
		leeway:   leeway,
	}, nil
}

// Verify checks signature, expiry and audience, and requires a uuid subject
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, unauthorized("empty token", nil)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, unauthorized("invalid token", err)
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, unauthorized("invalid token claims", nil)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, unauthorized("subject is not a uuid", err)
	}

	return &Principal{ID: id, Email: claims.Email, Role: claims.Role, ExpiresAt: claims.ExpiresAt.Time}, nil
}
