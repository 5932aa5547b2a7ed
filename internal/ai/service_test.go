package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                      { return &i }
func float32Ptr(f float32) *float32          { return &f }
func int64Ptr(i int64) *int64                { return &i }
func boolPtr(b bool) *bool                   { return &b }

func testToolConfig(baseURL string) config.OperationAIConfig {
	return config.OperationAIConfig{
		Provider:         "groq",
		Model:            "llama-3.1-70b-versatile",
		BaseURL:          baseURL,
		Timeout:          timePtr(5 * time.Second),
		APIKey:           "test-key",
		MaxRetries:       intPtr(0),
		Temperature:      float32Ptr(0.7),
		MaxTokens:        int64Ptr(4000),
		UseSystemPrompts: boolPtr(false),
		CircuitBreaker:   &config.CircuitBreakerConfig{Enabled: false},
	}
}

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.1-70b-versatile",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "Dear hiring manager"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200}
}`

// fakeGroq serves chat completions from a list of canned status codes.
// Once the list is exhausted every call succeeds.
type fakeGroq struct {
	statuses []int
	body     string
	calls    atomic.Int32
	lastBody atomic.Value
}

func (f *fakeGroq) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		n := int(f.calls.Add(1)) - 1
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.lastBody.Store(payload)

		w.Header().Set("Content-Type", "application/json")
		if n < len(f.statuses) && f.statuses[n] != http.StatusOK {
			w.WriteHeader(f.statuses[n])
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		body := f.body
		if body == "" {
			body = chatCompletionBody
		}
		_, _ = w.Write([]byte(body))

	case strings.Contains(r.URL.Path, "/models/"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"llama-3.1-70b-versatile","object":"model","created":1700000000,"owned_by":"Meta"}`))

	default:
		http.NotFound(w, r)
	}
}

func newTestService(t *testing.T, fake *fakeGroq, mutate func(*config.OperationAIConfig)) *Service {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := testToolConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(context.Background(), types.ToolCoverLetter, cfg, errors.NewNopLogger())
	require.NoError(t, err)
	return svc
}

func shrinkRetryDelay(t *testing.T) {
	t.Helper()
	prev := retryBaseDelay
	retryBaseDelay = time.Millisecond
	t.Cleanup(func() { retryBaseDelay = prev })
}

func TestService_Complete_Success(t *testing.T) {
	fake := &fakeGroq{}
	svc := newTestService(t, fake, nil)

	completion, err := svc.Complete(context.Background(), "", "Write a cover letter")
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager", completion.Text)
	assert.Equal(t, "stop", completion.FinishReason)
	assert.Equal(t, int64(200), completion.TotalTokens())
	assert.Equal(t, int32(1), fake.calls.Load())

	payload := fake.lastBody.Load().(map[string]any)
	assert.Equal(t, "llama-3.1-70b-versatile", payload["model"])
	assert.InDelta(t, 0.7, payload["temperature"], 0.001)
	assert.EqualValues(t, 4000, payload["max_tokens"])

	messages := payload["messages"].([]any)
	require.Len(t, messages, 1, "no system message unless configured")
	first := messages[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "Write a cover letter", first["content"])
}

func TestService_Complete_SendsSystemPrompt(t *testing.T) {
	fake := &fakeGroq{}
	svc := newTestService(t, fake, nil)

	_, err := svc.Complete(context.Background(), "You are a recruiter.", "Write a cover letter")
	require.NoError(t, err)

	messages := fake.lastBody.Load().(map[string]any)["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestService_Complete_Errors(t *testing.T) {
	tests := []struct {
		name        string
		fake        *fakeGroq
		wantCode    string
		wantMessage string
	}{
		{
			name:        "bad gateway",
			fake:        &fakeGroq{statuses: []int{http.StatusBadGateway}},
			wantCode:    errors.ErrCodeUpstreamFailed,
			wantMessage: "Groq API error: Bad Gateway",
		},
		{
			name:        "unauthorized upstream",
			fake:        &fakeGroq{statuses: []int{http.StatusUnauthorized}},
			wantCode:    errors.ErrCodeUpstreamFailed,
			wantMessage: "Groq API error: Unauthorized",
		},
		{
			name:        "empty choices",
			fake:        &fakeGroq{body: `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`},
			wantCode:    errors.ErrCodeMalformedResponse,
			wantMessage: "Invalid response from Groq API",
		},
		{
			name:        "empty content",
			fake:        &fakeGroq{body: `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`},
			wantCode:    errors.ErrCodeMalformedResponse,
			wantMessage: "Invalid response from Groq API",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.fake, nil)

			_, err := svc.Complete(context.Background(), "", "prompt")
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "unexpected error %v", err)
			assert.Equal(t, tt.wantMessage, errors.PublicMessage(err))
			assert.Equal(t, int32(1), tt.fake.calls.Load())
		})
	}
}

func TestService_Complete_RetriesTransientFailures(t *testing.T) {
	shrinkRetryDelay(t)
	fake := &fakeGroq{statuses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests}}
	svc := newTestService(t, fake, func(cfg *config.OperationAIConfig) {
		cfg.MaxRetries = intPtr(2)
	})

	completion, err := svc.Complete(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager", completion.Text)
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestService_Complete_DoesNotRetryClientErrors(t *testing.T) {
	shrinkRetryDelay(t)
	fake := &fakeGroq{statuses: []int{http.StatusBadRequest}}
	svc := newTestService(t, fake, func(cfg *config.OperationAIConfig) {
		cfg.MaxRetries = intPtr(3)
	})

	_, err := svc.Complete(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Equal(t, "Groq API error: Bad Request", errors.PublicMessage(err))
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestService_Complete_CircuitOpens(t *testing.T) {
	fake := &fakeGroq{statuses: []int{500, 500, 500, 500}}
	svc := newTestService(t, fake, func(cfg *config.OperationAIConfig) {
		cfg.CircuitBreaker = &config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		}
	})

	for range 2 {
		_, err := svc.Complete(context.Background(), "", "prompt")
		require.Error(t, err)
		assert.Equal(t, "Groq API error: Internal Server Error", errors.PublicMessage(err))
	}

	_, err := svc.Complete(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, "Groq API error: Service Unavailable", errors.PublicMessage(err))
	assert.Equal(t, int32(2), fake.calls.Load(), "open breaker must short-circuit")
	assert.False(t, svc.IsHealthy())
	assert.Equal(t, "open", svc.GetCircuitBreakerStats()["state"])
}

func TestService_CheckAPIKey(t *testing.T) {
	cfg := testToolConfig("http://127.0.0.1:0")
	cfg.APIKey = ""
	svc, err := NewService(context.Background(), types.ToolPortfolio, cfg, errors.NewNopLogger())
	require.NoError(t, err)

	err = svc.CheckAPIKey()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
	assert.Equal(t, "GROQ API key not configured", errors.PublicMessage(err))

	info := svc.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.Equal(t, "GROQ API key not configured", info.Error)

	cfg.APIKey = "set"
	svc, err = NewService(context.Background(), types.ToolPortfolio, cfg, errors.NewNopLogger())
	require.NoError(t, err)
	assert.NoError(t, svc.CheckAPIKey())
}

func TestService_GetModelInfo(t *testing.T) {
	svc := newTestService(t, &fakeGroq{}, nil)

	info := svc.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "groq", info.Provider)
	assert.Equal(t, "llama-3.1-70b-versatile", info.DisplayName)
	assert.Equal(t, "Meta", info.Version)
	assert.Empty(t, info.Error)
}

func TestNewProvider_Unsupported(t *testing.T) {
	cfg := testToolConfig("")
	cfg.Provider = "anthropic"

	_, err := NewProvider(context.Background(), &cfg, errors.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestGeminiProvider_WithoutKey(t *testing.T) {
	cfg := testToolConfig("")
	cfg.Provider = "gemini"
	cfg.APIKey = ""

	provider, err := NewGeminiProvider(context.Background(), &cfg, nil, errors.NewNopLogger())
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), CompletionRequest{Tool: types.ToolPortfolio, UserPrompt: "x"})
	require.Error(t, err)
	assert.Equal(t, "GEMINI API key not configured", errors.PublicMessage(err))
	assert.Equal(t, "GEMINI API key not configured", provider.GetModelInfo(context.Background()).Error)
}

func TestRegistry(t *testing.T) {
	cfg := &config.Config{
		AI: config.AIConfig{
			Provider:    "groq",
			Model:       "llama-3.1-70b-versatile",
			Timeout:     time.Minute,
			APIKey:      "global-key",
			Temperature: 0.7,
			MaxTokens:   4000,
			Tools: map[string]config.OperationAIConfig{
				"resume_analyzer": {Model: "llama-3.1-8b-instant", Provider: "openai", BaseURL: "http://localhost:1/v1"},
			},
		},
	}

	registry, err := NewRegistry(context.Background(), cfg, errors.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })

	require.Len(t, registry.Services(), len(types.AllToolTypes))

	analyzer, ok := registry.Service(types.ToolResumeAnalyzer)
	require.True(t, ok)
	assert.Equal(t, "llama-3.1-8b-instant", analyzer.Model())
	assert.Equal(t, "openai", analyzer.ProviderName())

	portfolio, ok := registry.Service(types.ToolPortfolio)
	require.True(t, ok)
	assert.Equal(t, "llama-3.1-70b-versatile", portfolio.Model())
	assert.Equal(t, "groq", portfolio.ProviderName())

	stats := registry.CircuitBreakerStats()
	assert.Len(t, stats, len(types.AllToolTypes))
	assert.Equal(t, map[string]any{"enabled": false}, stats["cover_letter"])
}
