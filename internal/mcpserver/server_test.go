package mcpserver

import (
	"context"
	"testing"
	"time"

	"careerkit/internal/ai"
	"careerkit/internal/auth"
	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/prompts"
	"careerkit/internal/proxy"
	"careerkit/internal/types"
	"careerkit/internal/usage"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoProvider struct{}

func (echoProvider) Complete(_ context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	return &ai.Completion{
		Text:  "generated for " + req.Tool.String(),
		Model: "llama-3.1-70b-versatile",
		Usage: &ai.TokenUsage{TotalTokens: 42},
	}, nil
}

func (echoProvider) GetModelInfo(context.Context) *ai.ModelInfo { return &ai.ModelInfo{Available: true} }
func (echoProvider) Name() string                               { return "groq" }
func (echoProvider) Close() error                               { return nil }

func newSession(t *testing.T, apiKey string) (*mcp.ClientSession, *usage.MemoryStore, uuid.UUID) {
	t.Helper()
	logger := errors.NewNopLogger()

	timeout := 5 * time.Second
	retries := 0
	temperature := float32(0.7)
	maxTokens := int64(4000)
	useSystem := false
	cfg := config.OperationAIConfig{
		Provider:         "groq",
		Model:            "llama-3.1-70b-versatile",
		Timeout:          &timeout,
		APIKey:           apiKey,
		MaxRetries:       &retries,
		Temperature:      &temperature,
		MaxTokens:        &maxTokens,
		UseSystemPrompts: &useSystem,
		CircuitBreaker:   &config.CircuitBreakerConfig{},
	}

	services := make([]*ai.Service, 0, len(types.AllToolTypes))
	for _, tool := range types.AllToolTypes {
		services = append(services, ai.NewServiceWithProvider(tool, cfg, echoProvider{}, logger))
	}
	store := usage.NewMemoryStore()
	svc := proxy.New(proxy.Options{
		AI:       ai.NewRegistryFromServices(services...),
		Prompts:  prompts.NewDefaultRegistry(),
		Recorder: usage.NewRecorder(store, time.Second, logger, nil),
		Logger:   logger,
	})

	localUser := uuid.MustParse("00000000-0000-0000-0000-000000000000")
	server := New(svc, &auth.Principal{ID: localUser}, "test", logger)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session, store, localUser
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestListTools(t *testing.T) {
	session, _, _ := newSession(t, "gsk-test")

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, tool := range types.AllToolTypes {
		assert.Contains(t, names, tool.String())
	}
}

func TestCallTool(t *testing.T) {
	session, store, localUser := newSession(t, "gsk-test")

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "cover_letter",
		Arguments: map[string]any{"user_input": "Ada Lovelace", "job_description": "Analyst"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "generated for cover_letter", textOf(t, result))

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, localUser, records[0].UserID)
	assert.Equal(t, int64(42), records[0].TokensUsed)
}

func TestCallTool_Errors(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		tool    string
		args    map[string]any
		wantMsg string
	}{
		{name: "missing input", apiKey: "gsk-test", tool: "portfolio", args: map[string]any{}, wantMsg: "user_input is required"},
		{name: "missing key", apiKey: "", tool: "portfolio", args: map[string]any{"user_input": "Ada"}, wantMsg: "GROQ API key not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _, _ := newSession(t, tt.apiKey)

			result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: tt.tool, Arguments: tt.args})
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Equal(t, tt.wantMsg, textOf(t, result))
		})
	}
}
