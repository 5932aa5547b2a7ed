package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Service runs upstream completions for one tool
type Service struct {
	Provider Provider // Exported for access from server package
	tool     types.ToolType
	config   config.OperationAIConfig
	breaker  *CircuitBreaker[*Completion]
	logger   *errors.Logger
}

// NewProvider creates the provider named by cfg.Provider
func NewProvider(ctx context.Context, cfg *config.OperationAIConfig, logger *errors.Logger) (Provider, error) {
	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	switch cfg.Provider {
	case "groq", "openai":
		return NewGroqProvider(cfg, httpClient, logger), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg, httpClient, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// NewService creates the AI service of a tool from its resolved configuration
func NewService(ctx context.Context, tool types.ToolType, cfg config.OperationAIConfig, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"tool", tool,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"max_tokens", *cfg.MaxTokens,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	provider, err := NewProvider(ctx, &cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewServiceWithProvider(tool, cfg, provider, logger), nil
}

// NewServiceWithProvider wires an existing provider, used by tests and embedders
func NewServiceWithProvider(tool types.ToolType, cfg config.OperationAIConfig, provider Provider, logger *errors.Logger) *Service {
	return &Service{
		Provider: provider,
		tool:     tool,
		config:   cfg,
		breaker:  NewCircuitBreaker[*Completion](tool.String(), cfg.CircuitBreaker, logger),
		logger:   logger,
	}
}

// Tool returns the tool this service serves
func (s *Service) Tool() types.ToolType {
	return s.tool
}

// Model returns the configured model name
func (s *Service) Model() string {
	return s.config.Model
}

// ProviderName returns the configured provider name
func (s *Service) ProviderName() string {
	return s.config.Provider
}

// CheckAPIKey fails with "<PROVIDER> API key not configured" when no key is set
func (s *Service) CheckAPIKey() error {
	if s.config.APIKey != "" {
		return nil
	}
	return errors.NewConfigError(errors.ErrCodeMissingAPIKey,
		fmt.Sprintf("%s API key not configured", strings.ToUpper(s.config.Provider)), nil).
		WithContext("tool", s.tool.String())
}

// Complete sends the rendered prompts upstream with timeout, retry and circuit breaker
func (s *Service) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	tracer := otel.Tracer("careerkit.ai")
	ctx, span := tracer.Start(ctx, s.config.Provider+".complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", s.config.Provider),
		attribute.String("ai.model", s.config.Model),
		attribute.String("ai.tool", s.tool.String()),
		attribute.Float64("ai.temperature", float64(*s.config.Temperature)),
		attribute.Int("input.prompt_length", len(userPrompt)),
		attribute.Bool("input.system_prompt", systemPrompt != ""),
	)

	if s.config.Timeout != nil && *s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *s.config.Timeout)
		defer cancel()
	}

	req := CompletionRequest{Tool: s.tool, SystemPrompt: systemPrompt, UserPrompt: userPrompt}
	operation := "generate_" + s.tool.String()

	start := time.Now()
	completion, err := s.breaker.Execute(func() (*Completion, error) {
		return executeWithRetry(ctx, s.logger, operation, *s.config.MaxRetries, func() (*Completion, error) {
			return s.Provider.Complete(ctx, req)
		})
	})
	if err != nil {
		if isBreakerRejection(err) {
			err = errors.NewUpstreamError(errors.ErrCodeCircuitOpen,
				fmt.Sprintf("%s API error: %s", DisplayName(s.config.Provider), http.StatusText(http.StatusServiceUnavailable)), err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.PublicMessage(err))
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}

	if completion.Usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", completion.Usage.InputTokens),
			attribute.Int64("ai.tokens.output", completion.Usage.OutputTokens),
			attribute.Int64("ai.tokens.total", completion.Usage.TotalTokens),
		)
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.length", len(completion.Text)),
		attribute.Int64("ai.duration_ms", time.Since(start).Milliseconds()),
	)
	return completion, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (s *Service) GetCircuitBreakerStats() map[string]any {
	return s.breaker.GetStats()
}

// IsHealthy reports whether the tool's circuit breaker is closed
func (s *Service) IsHealthy() bool {
	return s.breaker.IsHealthy()
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}
