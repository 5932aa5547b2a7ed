package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// providerDisplayNames are used in client-facing error messages
var providerDisplayNames = map[string]string{
	"groq":   "Groq",
	"openai": "OpenAI",
	"gemini": "Gemini",
}

// DisplayName returns the human-readable name of a provider
func DisplayName(provider string) string {
	if name, ok := providerDisplayNames[provider]; ok {
		return name
	}
	return provider
}

// GroqProvider implements Provider for OpenAI-compatible chat completion APIs,
// Groq being the default
type GroqProvider struct {
	client oai.Client
	config *config.OperationAIConfig
	name   string
	logger *errors.Logger
}

var _ Provider = (*GroqProvider)(nil)

// NewGroqProvider creates a provider for cfg.BaseURL, which may point at any
// OpenAI-compatible API. The SDK's own retries are disabled.
func NewGroqProvider(cfg *config.OperationAIConfig, httpClient *http.Client, logger *errors.Logger) *GroqProvider {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &GroqProvider{
		client: oai.NewClient(opts...),
		config: cfg,
		name:   cfg.Provider,
		logger: logger,
	}
}

// Name implements Provider
func (p *GroqProvider) Name() string {
	return p.name
}

// Complete implements Provider
func (p *GroqProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, p.upstreamError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.NewUpstreamError(errors.ErrCodeMalformedResponse,
			fmt.Sprintf("Invalid response from %s API", DisplayName(p.name)), nil).
			WithContext("choices", len(resp.Choices))
	}

	choice := resp.Choices[0]
	completion := &Completion{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
	}
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		completion.Usage = &TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}
	return completion, nil
}

func (p *GroqProvider) buildParams(req CompletionRequest) oai.ChatCompletionNewParams {
	var messages []oai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, oai.UserMessage(req.UserPrompt))

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.config.Model),
		Messages: messages,
	}
	if p.config.Temperature != nil {
		params.Temperature = param.NewOpt(float64(*p.config.Temperature))
	}
	if p.config.MaxTokens != nil && *p.config.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(*p.config.MaxTokens)
	}
	return params
}

// upstreamError maps SDK errors onto the public "<Provider> API error: ..." message
func (p *GroqProvider) upstreamError(err error) error {
	display := DisplayName(p.name)

	var apiErr *oai.Error
	if stderrors.As(err, &apiErr) {
		return errors.NewUpstreamError(errors.ErrCodeUpstreamFailed,
			fmt.Sprintf("%s API error: %s", display, statusText(apiErr.StatusCode)), err).
			WithContext("status_code", apiErr.StatusCode)
	}

	return errors.NewUpstreamError(errors.ErrCodeUpstreamFailed,
		fmt.Sprintf("%s API error: %v", display, err), err)
}

// statusText mirrors the status line text of an HTTP response
func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return strconv.Itoa(code)
}

// GetModelInfo checks the readiness and availability of the configured model
func (p *GroqProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:     p.config.Model,
		Provider: p.name,
	}

	if p.config.APIKey == "" {
		modelInfo.Error = fmt.Sprintf("%s API key not configured", strings.ToUpper(p.name))
		return modelInfo
	}

	model, err := p.client.Models.Get(ctx, p.config.Model)
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %s", errors.PublicMessage(p.upstreamError(err)))
		p.logger.Warn("Model availability check failed",
			"model", p.config.Model,
			"provider", p.name,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.ID
	modelInfo.Version = model.OwnedBy
	return modelInfo
}

// Close implements Provider
func (p *GroqProvider) Close() error {
	return nil
}
