package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allMetricsEnabled() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		AIOperations:    config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true},
		BusinessMetrics: config.BusinessMetricsConfig{Enabled: true},
		Infrastructure: config.InfrastructureMetricsConfig{
			Enabled:               true,
			TrackRateLimits:       true,
			TrackAuthFailures:     true,
			TrackUsageLogFailures: true,
		},
	}
}

func newTestManager(t *testing.T, flags config.CustomMetricsConfig) *ObservabilityManager {
	t.Helper()
	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:     "careerkit-test",
		ServiceVersion:  "test",
		ServiceInstance: "test-1",
		Enabled:         true,
		SampleRate:      1.0,
		CustomMetrics:   flags,
	}, errors.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	return om
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	m := om.GetMetrics()
	assert.Nil(t, m)

	// A nil *Metrics records nothing and still runs the operation
	called := false
	err = m.TrackAIOperation(context.Background(), "portfolio", "groq", func(context.Context) *AIOperationResult {
		called = true
		return &AIOperationResult{Error: stderrors.New("boom")}
	})
	assert.True(t, called)
	assert.EqualError(t, err, "boom")
	m.RecordToolInvocation(context.Background(), "portfolio", true)
	m.RecordUsageLogFailure(context.Background(), "portfolio")
	m.RecordAuthFailure(context.Background(), "invalid token")
	m.RecordRateLimitHit(context.Background(), "ip")

	_, err = om.Collect(context.Background())
	assert.Error(t, err)
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestMetricsRecording(t *testing.T) {
	om := newTestManager(t, allMetricsEnabled())
	m := om.GetMetrics()
	require.NotNil(t, m)
	ctx := context.Background()

	err := m.TrackAIOperation(ctx, "cover_letter", "groq", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}}
	})
	require.NoError(t, err)
	_ = m.TrackAIOperation(ctx, "cover_letter", "groq", func(context.Context) *AIOperationResult {
		return &AIOperationResult{Error: stderrors.New("Groq API error: Bad Gateway")}
	})

	m.RecordToolInvocation(ctx, "cover_letter", true)
	m.RecordToolInvocation(ctx, "cover_letter", false)
	m.RecordToolInvocation(ctx, "mock_interview", true)
	m.RecordUsageLogFailure(ctx, "cover_letter")
	m.RecordAuthFailure(ctx, "invalid token")
	m.RecordRateLimitHit(ctx, "ip")
	m.RecordRateLimitHit(ctx, "token")

	snapshot, err := om.Collect(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), snapshot["careerkit_ai_requests_total"])
	assert.Equal(t, int64(1), snapshot["careerkit_ai_errors_total"])
	assert.Equal(t, int64(2), snapshot["careerkit_ai_processing_duration_seconds"])
	assert.Equal(t, int64(3), snapshot["careerkit_ai_token_usage"])
	assert.Equal(t, int64(3), snapshot["careerkit_tool_invocations_total"])
	assert.Equal(t, int64(1), snapshot["careerkit_tool_invocations_total{success=true,tool=cover_letter}"])
	assert.Equal(t, int64(1), snapshot["careerkit_usage_log_failures_total"])
	assert.Equal(t, int64(1), snapshot["careerkit_auth_failures_total"])
	assert.Equal(t, int64(2), snapshot["careerkit_rate_limit_hits_total"])
}

func TestMetricsFlags(t *testing.T) {
	flags := allMetricsEnabled()
	flags.AIOperations.TrackDuration = false
	flags.AIOperations.TrackTokenUsage = false
	flags.BusinessMetrics.Enabled = false
	flags.Infrastructure.TrackRateLimits = false

	om := newTestManager(t, flags)
	m := om.GetMetrics()
	ctx := context.Background()

	_ = m.TrackAIOperation(ctx, "portfolio", "groq", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{TotalTokens: 5}}
	})
	m.RecordToolInvocation(ctx, "portfolio", true)
	m.RecordRateLimitHit(ctx, "ip")
	m.RecordAuthFailure(ctx, "missing user")

	snapshot, err := om.Collect(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), snapshot["careerkit_ai_requests_total"])
	assert.Zero(t, snapshot["careerkit_ai_processing_duration_seconds"])
	assert.Zero(t, snapshot["careerkit_ai_token_usage"])
	assert.Zero(t, snapshot["careerkit_tool_invocations_total"])
	assert.Zero(t, snapshot["careerkit_rate_limit_hits_total"])
	assert.Equal(t, int64(1), snapshot["careerkit_auth_failures_total"])
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Enabled = true
	cfg.Observability.ServiceName = "careerkit"
	cfg.Observability.SampleRate = 0.5
	cfg.Observability.Metrics.CollectionInterval = 30 * time.Second
	cfg.Observability.Prometheus = config.PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9090"}

	got := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "careerkit", got.ServiceName)
	assert.Equal(t, "1.2.3", got.ServiceVersion)
	assert.Equal(t, 30*time.Second, got.Interval)
	assert.Equal(t, PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9090"}, got.Prometheus)

	cfg.Observability.ServiceVersion = "pinned"
	assert.Equal(t, "pinned", GetObservabilityConfig(cfg, "1.2.3").ServiceVersion)
}
