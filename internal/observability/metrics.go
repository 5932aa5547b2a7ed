package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperation runs fn and records duration, request, error and token metrics
// for the tool
func (m *Metrics) TrackAIOperation(ctx context.Context, tool, provider string, fn func(context.Context) *AIOperationResult) error {
	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m == nil || m.AIRequestCount == nil || !m.flags.AIOperations.Enabled {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	}

	if m.flags.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.flags.AIOperations.TrackTokenUsage && result != nil && result.TokenUsage != nil {
		m.recordTokenMetrics(ctx, tool, result.TokenUsage)
	}

	return err
}

// recordTokenMetrics records individual token usage metrics
func (m *Metrics) recordTokenMetrics(ctx context.Context, tool string, tokenUsage *TokenUsage) {
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", tokenUsage.InputTokens},
		{"output", tokenUsage.OutputTokens},
		{"total", tokenUsage.TotalTokens},
	}

	for _, tt := range tokenTypes {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordToolInvocation counts one proxied call
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool string, success bool) {
	if m == nil || m.ToolInvocations == nil || !m.flags.BusinessMetrics.Enabled {
		return
	}
	m.ToolInvocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("success", success),
	))
}

// RecordUsageLogFailure counts a usage_logs insert that failed
func (m *Metrics) RecordUsageLogFailure(ctx context.Context, tool string) {
	if m == nil || m.UsageLogFailures == nil || !m.infrastructure(m.flags.Infrastructure.TrackUsageLogFailures) {
		return
	}
	m.UsageLogFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

// RecordAuthFailure counts a rejected session
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil || m.AuthFailures == nil || !m.infrastructure(m.flags.Infrastructure.TrackAuthFailures) {
		return
	}
	m.AuthFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRateLimitHit counts a request rejected by the rate limiter
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limiterType string) {
	if m == nil || m.RateLimitHits == nil || !m.infrastructure(m.flags.Infrastructure.TrackRateLimits) {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", limiterType)))
}

func (m *Metrics) infrastructure(track bool) bool {
	return m.flags.Infrastructure.Enabled && track
}

// MetricSnapshot maps metric names to counter sums or histogram counts.
// Each metric also appears once per attribute set as name{k=v,...}.
type MetricSnapshot map[string]int64

func collect(ctx context.Context, reader *sdkmetric.ManualReader) (MetricSnapshot, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	snapshot := MetricSnapshot{}
	add := func(name string, attrs attribute.Set, value int64) {
		snapshot[name] += value
		if attrs.Len() > 0 {
			snapshot[name+"{"+attrs.Encoded(attribute.DefaultEncoder())+"}"] += value
		}
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					add(m.Name, dp.Attributes, dp.Value)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					add(m.Name, dp.Attributes, int64(dp.Count))
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					add(m.Name, dp.Attributes, int64(dp.Count))
				}
			}
		}
	}
	return snapshot, nil
}
