package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client *genai.Client
	config *config.OperationAIConfig
	logger *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider. Without an API key the client
// is not created and every call reports the missing key.
func NewGeminiProvider(ctx context.Context, cfg *config.OperationAIConfig, httpClient *http.Client, logger *errors.Logger) (*GeminiProvider, error) {
	provider := &GeminiProvider{
		config: cfg,
		logger: logger,
	}
	if cfg.APIKey == "" {
		return provider, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}
	provider.client = client
	return provider, nil
}

// Name implements Provider
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// Complete implements Provider
func (g *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if g.client == nil {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "GEMINI API key not configured", nil)
	}

	genaiConfig := &genai.GenerateContentConfig{}
	if g.config.Temperature != nil && *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}
	if g.config.MaxTokens != nil && *g.config.MaxTokens > 0 {
		genaiConfig.MaxOutputTokens = int32(*g.config.MaxTokens)
	}
	if req.SystemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(req.UserPrompt), genaiConfig)
	if err != nil {
		return nil, upstreamGeminiError(err)
	}

	text := ""
	if len(result.Candidates) > 0 {
		text = result.Text()
	}
	if text == "" {
		return nil, errors.NewUpstreamError(errors.ErrCodeMalformedResponse,
			"Invalid response from Gemini API", nil).
			WithContext("candidates", len(result.Candidates))
	}

	completion := &Completion{
		Text:  text,
		Model: g.config.Model,
		Usage: extractTokenUsage(result),
	}
	if result.ModelVersion != "" {
		completion.Model = result.ModelVersion
	}
	completion.FinishReason = strings.ToLower(string(result.Candidates[0].FinishReason))
	return completion, nil
}

// upstreamGeminiError maps API errors onto the public "Gemini API error: ..." message
func upstreamGeminiError(err error) error {
	code := 0
	var apiErr genai.APIError
	var googleErr *googleapi.Error
	switch {
	case stderrors.As(err, &apiErr):
		code = apiErr.Code
	case stderrors.As(err, &googleErr):
		code = googleErr.Code
	}

	if code != 0 {
		return errors.NewUpstreamError(errors.ErrCodeUpstreamFailed,
			fmt.Sprintf("Gemini API error: %s", statusText(code)), err).
			WithContext("status_code", code)
	}
	return errors.NewUpstreamError(errors.ErrCodeUpstreamFailed,
		fmt.Sprintf("Gemini API error: %v", err), err)
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:     g.config.Model,
		Provider: "gemini",
	}
	if g.client == nil {
		modelInfo.Error = "GEMINI API key not configured"
		return modelInfo
	}

	model, err := g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", "gemini",
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version
	return modelInfo
}

// Close implements Provider
func (g *GeminiProvider) Close() error {
	// The genai client holds no resources in single-shot usage
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
