package ai

import (
	"context"

	"careerkit/internal/types"
)

// Provider is an upstream chat-completion backend
type Provider interface {
	// Complete sends one completion request. Errors carry the public
	// "<Provider> API error: ..." message as an AppError.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Name() string
	Close() error
}

// CompletionRequest is a single-turn prompt
type CompletionRequest struct {
	Tool         types.ToolType
	SystemPrompt string // optional
	UserPrompt   string
}

// Completion is the first choice of an upstream reply
type Completion struct {
	Text         string
	Model        string
	FinishReason string
	Usage        *TokenUsage
}

// TotalTokens returns the reported total, or 0 when the upstream sent no usage
func (c *Completion) TotalTokens() int64 {
	if c == nil || c.Usage == nil {
		return 0
	}
	return c.Usage.TotalTokens
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
