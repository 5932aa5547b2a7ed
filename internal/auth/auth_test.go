package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "6f1d3c2a-9b8e-4d7f-a1b2-c3d4e5f60718"

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "bearer abc.def", want: "abc.def"},
		{header: "  Bearer   abc.def  ", want: "abc.def"},
		{header: "abc.def", want: "abc.def"},
		{header: "Bearer ", want: ""},
		{header: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BearerToken(tt.header), "header %q", tt.header)
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "****", MaskToken("short"))
	assert.Equal(t, "eyJhbG...wxyz", MaskToken("eyJhbGciOiJIUzI1NiJ9.payload.wxyz"))
}

func TestSupabaseVerifier(t *testing.T) {
	var gotAPIKey, gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"` + testUserID + `","email":"ada@example.com","role":"authenticated"}`))
		case "Bearer no-id":
			_, _ = w.Write([]byte(`{"email":"ada@example.com"}`))
		case "Bearer bad-id":
			_, _ = w.Write([]byte(`{"id":"not-a-uuid"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
		}
	}))
	t.Cleanup(srv.Close)

	v := NewSupabaseVerifier(srv.URL+"/", "anon-key", time.Second, srv.Client())

	principal, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	want := &Principal{ID: uuid.MustParse(testUserID), Email: "ada@example.com", Role: "authenticated"}
	if diff := cmp.Diff(want, principal); diff != "" {
		t.Errorf("principal mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "anon-key", gotAPIKey)
	assert.Equal(t, "Bearer good", gotAuth)
	assert.Equal(t, "/auth/v1/user", gotPath)

	for _, token := range []string{"expired", "no-id", "bad-id", ""} {
		t.Run("rejects "+token, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))
			assert.Equal(t, "Unauthorized", errors.PublicMessage(err))
		})
	}
}

func TestSupabaseVerifier_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v := NewSupabaseVerifier(url, "anon-key", time.Second, nil)
	_, err := v.Verify(context.Background(), "token")
	require.Error(t, err)
	assert.Equal(t, "Unauthorized", errors.PublicMessage(err))
}

func TestSupabaseVerifier_NotConfigured(t *testing.T) {
	v := NewSupabaseVerifier("", "", time.Second, nil)
	_, err := v.Verify(context.Background(), "token")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTVerifier(t *testing.T) {
	secret := []byte("super-secret-jwt-token-with-at-least-32-characters")
	v, err := NewJWTVerifier(string(secret), "authenticated", 5*time.Second)
	require.NoError(t, err)

	now := time.Now()
	valid := jwt.MapClaims{
		"sub":   testUserID,
		"aud":   "authenticated",
		"email": "ada@example.com",
		"role":  "authenticated",
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	}
	with := func(key string, value any) jwt.MapClaims {
		out := jwt.MapClaims{}
		for k, v := range valid {
			out[k] = v
		}
		if value == nil {
			delete(out, key)
		} else {
			out[key] = value
		}
		return out
	}

	principal, err := v.Verify(context.Background(), signToken(t, jwt.SigningMethodHS256, secret, valid))
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(testUserID), principal.ID)
	assert.Equal(t, "ada@example.com", principal.Email)
	assert.Equal(t, now.Add(time.Hour).Unix(), principal.ExpiresAt.Unix())

	// Within leeway
	_, err = v.Verify(context.Background(), signToken(t, jwt.SigningMethodHS256, secret, with("exp", now.Add(-2*time.Second).Unix())))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong secret", token: signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), valid)},
		{name: "expired", token: signToken(t, jwt.SigningMethodHS256, secret, with("exp", now.Add(-time.Hour).Unix()))},
		{name: "no expiry", token: signToken(t, jwt.SigningMethodHS256, secret, with("exp", nil))},
		{name: "wrong audience", token: signToken(t, jwt.SigningMethodHS256, secret, with("aud", "anon"))},
		{name: "subject not uuid", token: signToken(t, jwt.SigningMethodHS256, secret, with("sub", "user-1"))},
		{name: "other algorithm", token: signToken(t, jwt.SigningMethodHS512, secret, valid)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthorized))
		})
	}
}

func TestNewJWTVerifier_RequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier("", "authenticated", 0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Close() error { return nil }

type countingVerifier struct {
	calls     int
	err       error
	expiresAt time.Time
}

func (v *countingVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return &Principal{ID: uuid.MustParse(testUserID), Role: "authenticated", ExpiresAt: v.expiresAt}, nil
}

func TestCachedVerifier(t *testing.T) {
	t.Run("hit skips wrapped verifier", func(t *testing.T) {
		next := &countingVerifier{}
		cache := newMemoryCache()
		v := NewCachedVerifier(next, cache, "careerkit:auth:", 30*time.Second, errors.NewNopLogger())

		for range 3 {
			principal, err := v.Verify(context.Background(), "token")
			require.NoError(t, err)
			assert.Equal(t, uuid.MustParse(testUserID), principal.ID)
		}
		assert.Equal(t, 1, next.calls)

		require.Len(t, cache.entries, 1)
		for key, ttl := range cache.ttls {
			assert.Equal(t, "careerkit:auth:3c469e9d6c5875d37a43f353d4f88e61fcf812c66eee3457465a40b0da4153e0", key)
			assert.Equal(t, 30*time.Second, ttl)
		}
	})

	t.Run("ttl capped at principal expiry", func(t *testing.T) {
		next := &countingVerifier{expiresAt: time.Now().Add(10 * time.Second)}
		cache := newMemoryCache()
		v := NewCachedVerifier(next, cache, "p:", time.Minute, errors.NewNopLogger())

		_, err := v.Verify(context.Background(), "token")
		require.NoError(t, err)
		require.Len(t, cache.ttls, 1)
		for _, ttl := range cache.ttls {
			assert.Greater(t, ttl, time.Duration(0))
			assert.LessOrEqual(t, ttl, 10*time.Second)
		}
	})

	t.Run("ttl capped at token exp claim", func(t *testing.T) {
		next := &countingVerifier{}
		cache := newMemoryCache()
		v := NewCachedVerifier(next, cache, "p:", time.Minute, errors.NewNopLogger())

		token := signToken(t, jwt.SigningMethodHS256, []byte("any-secret"), jwt.MapClaims{
			"sub": testUserID,
			"exp": time.Now().Add(5 * time.Second).Unix(),
		})
		_, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
		require.Len(t, cache.ttls, 1)
		for _, ttl := range cache.ttls {
			assert.LessOrEqual(t, ttl, 5*time.Second)
		}
	})

	t.Run("expired session is not cached", func(t *testing.T) {
		next := &countingVerifier{expiresAt: time.Now().Add(-time.Second)}
		cache := newMemoryCache()
		v := NewCachedVerifier(next, cache, "p:", time.Minute, errors.NewNopLogger())

		_, err := v.Verify(context.Background(), "token")
		require.NoError(t, err)
		assert.Empty(t, cache.entries)
	})

	t.Run("rejections are not cached", func(t *testing.T) {
		next := &countingVerifier{err: unauthorized("session rejected", nil)}
		cache := newMemoryCache()
		v := NewCachedVerifier(next, cache, "p:", time.Minute, errors.NewNopLogger())

		for range 2 {
			_, err := v.Verify(context.Background(), "token")
			require.Error(t, err)
		}
		assert.Equal(t, 2, next.calls)
		assert.Empty(t, cache.entries)
	})

	t.Run("cache failures fall through", func(t *testing.T) {
		next := &countingVerifier{}
		cache := newMemoryCache()
		cache.getErr = stderrors.New("connection refused")
		cache.setErr = stderrors.New("connection refused")
		v := NewCachedVerifier(next, cache, "p:", time.Minute, errors.NewNopLogger())

		principal, err := v.Verify(context.Background(), "token")
		require.NoError(t, err)
		assert.NotNil(t, principal)
		assert.Equal(t, 1, next.calls)
	})
}

func TestNewVerifier(t *testing.T) {
	logger := errors.NewNopLogger()

	v, err := NewVerifier(config.AuthConfig{Mode: "supabase", SupabaseURL: "https://project.supabase.co"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SupabaseVerifier{}, v)

	v, err = NewVerifier(config.AuthConfig{Mode: "jwt", JWTSecret: "secret", Audience: "authenticated"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &JWTVerifier{}, v)

	_, err = NewVerifier(config.AuthConfig{Mode: "jwt"}, logger)
	require.Error(t, err)

	_, err = NewVerifier(config.AuthConfig{Mode: "oauth"}, logger)
	require.Error(t, err)

	v, err = NewVerifier(config.AuthConfig{
		Mode:        "supabase",
		SupabaseURL: "https://project.supabase.co",
		Cache:       config.AuthCacheConfig{Enabled: true, RedisURL: "redis://localhost:6379/0", TTL: time.Minute, KeyPrefix: "careerkit:auth:"},
	}, logger)
	require.NoError(t, err)
	cached, ok := v.(*CachedVerifier)
	require.True(t, ok)
	assert.NoError(t, cached.Close())
}
