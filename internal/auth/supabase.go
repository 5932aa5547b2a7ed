package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"careerkit/internal/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxUserResponseSize bounds the body read from the user endpoint
const maxUserResponseSize = 1 << 20

// SupabaseVerifier asks the Supabase auth API who owns a token
type SupabaseVerifier struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

var _ Verifier = (*SupabaseVerifier)(nil)

type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewSupabaseVerifier creates a verifier for the project at baseURL. A nil
// httpClient gets an otelhttp-instrumented client with the given timeout.
func NewSupabaseVerifier(baseURL, anonKey string, timeout time.Duration, httpClient *http.Client) *SupabaseVerifier {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &SupabaseVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: httpClient,
	}
}

// Verify calls GET /auth/v1/user with the token
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, unauthorized("empty token", nil)
	}
	if v.baseURL == "" {
		return nil, unauthorized("supabase url not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, unauthorized("invalid request", err)
	}
	req.Header.Set("apikey", v.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeUnauthorized, "Unauthorized",
			fmt.Errorf("supabase auth request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUserResponseSize))
		return nil, unauthorized("session rejected", nil).WithContext("status_code", resp.StatusCode)
	}

	var user supabaseUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserResponseSize)).Decode(&user); err != nil {
		return nil, unauthorized("malformed user response", err)
	}
	if user.ID == "" {
		return nil, unauthorized("no user in response", nil)
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, unauthorized("user id is not a uuid", err)
	}

	return &Principal{ID: id, Email: user.Email, Role: user.Role}, nil
}
