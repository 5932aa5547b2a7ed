// Package proxy implements the tool request pipeline: key check, session
// verification, prompt rendering, the upstream call and usage logging.
package proxy

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"careerkit/internal/ai"
	"careerkit/internal/auth"
	"careerkit/internal/errors"
	"careerkit/internal/observability"
	"careerkit/internal/prompts"
	"careerkit/internal/types"
	"careerkit/internal/usage"
)

// Request is a parsed tool request
type Request struct {
	Tool           types.ToolType
	UserInput      string
	JobDescription string
}

// Options wires the dependencies of a Service
type Options struct {
	AI       *ai.Registry
	Prompts  *prompts.Registry
	Verifier auth.Verifier
	Recorder *usage.Recorder
	Metrics  *observability.Metrics
	Logger   *errors.Logger

	// MaxInputChars bounds user_input and job_description; 0 disables the check
	MaxInputChars int
	// DefaultProvider and DefaultAPIKey are checked when tool_type is unknown
	DefaultProvider string
	DefaultAPIKey   string
}

// Service runs tool requests
type Service struct {
	ai              *ai.Registry
	prompts         *prompts.Registry
	verifier        auth.Verifier
	recorder        *usage.Recorder
	metrics         *observability.Metrics
	logger          *errors.Logger
	maxInputChars   int
	defaultProvider string
	defaultAPIKey   string
}

// New creates a Service
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = usage.NewRecorder(nil, 0, logger, opts.Metrics)
	}
	return &Service{
		ai:              opts.AI,
		prompts:         opts.Prompts,
		verifier:        opts.Verifier,
		recorder:        recorder,
		metrics:         opts.Metrics,
		logger:          logger,
		maxInputChars:   opts.MaxInputChars,
		defaultProvider: opts.DefaultProvider,
		defaultAPIKey:   opts.DefaultAPIKey,
	}
}

// Handle runs the full pipeline for an HTTP request body and Authorization header
func (s *Service) Handle(ctx context.Context, authHeader string, body io.Reader) (*types.GenerationResult, error) {
	// 1. Parse
	var raw types.ToolRequest
	if err := decodeBody(body, &raw); err != nil {
		return nil, err
	}

	// 2. Key check, before auth
	tool, known := types.ParseToolType(raw.ToolType)
	if err := s.checkAPIKey(tool, known); err != nil {
		return nil, err
	}

	// 3. Auth header
	if authHeader == "" {
		return nil, errors.NewAuthError(errors.ErrCodeMissingAuthHeader, "No authorization header", nil)
	}

	// 4. Session
	principal, err := s.verify(ctx, authHeader)
	if err != nil {
		return nil, err
	}

	// 5. Template
	if !known {
		err := errors.NewValidationError(errors.ErrCodeInvalidToolType, "Invalid tool type", nil).
			WithContext("tool_type", raw.ToolType)
		s.recordFailure(ctx, principal, types.ToolType(raw.ToolType), err)
		return nil, err
	}

	return s.generate(ctx, principal, Request{
		Tool:           tool,
		UserInput:      raw.UserInput,
		JobDescription: raw.JobDescription,
	})
}

// Generate runs steps after authentication for an already known principal,
// as the CLI and MCP surfaces do
func (s *Service) Generate(ctx context.Context, principal *auth.Principal, req Request) (*types.GenerationResult, error) {
	if err := s.checkAPIKey(req.Tool, true); err != nil {
		return nil, err
	}
	return s.generate(ctx, principal, req)
}

func (s *Service) generate(ctx context.Context, principal *auth.Principal, req Request) (*types.GenerationResult, error) {
	svc, ok := s.ai.Service(req.Tool)
	if !ok {
		err := errors.NewValidationError(errors.ErrCodeInvalidToolType, "Invalid tool type", nil)
		s.recordFailure(ctx, principal, req.Tool, err)
		return nil, err
	}

	// 6. Input validation
	if err := s.validate(req); err != nil {
		s.recordFailure(ctx, principal, req.Tool, err)
		return nil, err
	}

	// 7. Render
	systemPrompt, userPrompt, err := s.prompts.Render(req.Tool, req.UserInput, req.JobDescription)
	if err != nil {
		appErr := errors.NewValidationError(errors.ErrCodeInvalidToolType, "Invalid tool type", err)
		s.recordFailure(ctx, principal, req.Tool, appErr)
		return nil, appErr
	}

	// 8 and 9. Forward and validate shape
	start := time.Now()
	var completion *ai.Completion
	err = s.metrics.TrackAIOperation(ctx, req.Tool.String(), svc.ProviderName(), func(ctx context.Context) *observability.AIOperationResult {
		var callErr error
		completion, callErr = svc.Complete(ctx, systemPrompt, userPrompt)
		result := &observability.AIOperationResult{Error: callErr}
		if completion != nil && completion.Usage != nil {
			result.TokenUsage = &observability.TokenUsage{
				InputTokens:  completion.Usage.InputTokens,
				OutputTokens: completion.Usage.OutputTokens,
				TotalTokens:  completion.Usage.TotalTokens,
			}
		}
		return result
	})
	if err != nil {
		s.recordFailure(ctx, principal, req.Tool, err)
		return nil, err
	}

	// 10. Log usage, failures are swallowed by the recorder
	tokens := completion.TotalTokens()
	s.recorder.Record(ctx, usage.Record{
		UserID:     principal.ID,
		ToolType:   req.Tool,
		TokensUsed: tokens,
		Success:    true,
	})
	s.metrics.RecordToolInvocation(ctx, req.Tool.String(), true)

	duration := time.Since(start)
	s.logger.Info("Tool request completed",
		"tool_type", req.Tool,
		"user_id", principal.ID.String(),
		"model", completion.Model,
		"tokens_used", tokens,
		"duration", duration)

	return &types.GenerationResult{
		ToolType:   req.Tool,
		Content:    completion.Text,
		TokensUsed: tokens,
		Model:      completion.Model,
		Duration:   duration,
	}, nil
}

// checkAPIKey uses the tool's resolved key, or the global key when the
// tool is unknown
func (s *Service) checkAPIKey(tool types.ToolType, known bool) error {
	if known {
		if svc, ok := s.ai.Service(tool); ok {
			return svc.CheckAPIKey()
		}
	}
	if s.defaultAPIKey != "" {
		return nil
	}
	provider := s.defaultProvider
	if provider == "" {
		provider = "groq"
	}
	return errors.NewConfigError(errors.ErrCodeMissingAPIKey,
		fmt.Sprintf("%s API key not configured", strings.ToUpper(provider)), nil)
}

func (s *Service) verify(ctx context.Context, authHeader string) (*auth.Principal, error) {
	token := auth.BearerToken(authHeader)
	principal, err := s.verifier.Verify(ctx, token)
	if err == nil && principal != nil {
		return principal, nil
	}

	reason := "missing user"
	if appErr, ok := errors.As(err); ok {
		if r, ok := appErr.Context["reason"].(string); ok {
			reason = r
		} else {
			reason = string(appErr.Type)
		}
	}
	s.metrics.RecordAuthFailure(ctx, reason)
	s.logger.Warn("Session verification failed", "reason", reason, "token", auth.MaskToken(token))

	return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, "Unauthorized", err)
}

func (s *Service) validate(req Request) error {
	userInput := strings.TrimSpace(req.UserInput)
	jobDescription := strings.TrimSpace(req.JobDescription)

	if req.Tool == types.ToolMockInterview {
		if userInput == "" && jobDescription == "" {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"user_input or job_description is required", nil)
		}
	} else if userInput == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "user_input is required", nil)
	}

	if s.maxInputChars <= 0 {
		return nil
	}
	fields := []struct{ name, value string }{
		{"user_input", req.UserInput},
		{"job_description", req.JobDescription},
	}
	for _, field := range fields {
		if n := utf8.RuneCountInString(field.value); n > s.maxInputChars {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("%s exceeds the maximum length of %d characters", field.name, s.maxInputChars), nil).
				WithContext("length", n)
		}
	}
	return nil
}

// recordFailure writes a success=false row once the user is known
func (s *Service) recordFailure(ctx context.Context, principal *auth.Principal, tool types.ToolType, err error) {
	s.logger.LogError(err, "Tool request failed",
		"tool_type", tool,
		"user_id", principal.ID.String())
	s.recorder.Record(ctx, usage.Record{
		UserID:   principal.ID,
		ToolType: tool,
		Success:  false,
	})
	s.metrics.RecordToolInvocation(ctx, tool.String(), false)
}

// decodeBody parses a JSON object body
func decodeBody(body io.Reader, dst *types.ToolRequest) error {
	dec := json.NewDecoder(body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return bodyError(err)
	}
	// The body must hold exactly one JSON value
	if err := dec.Decode(&json.RawMessage{}); !stderrors.Is(err, io.EOF) {
		if err == nil {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid request body", nil)
		}
		return bodyError(err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid request body", nil)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid request body", err)
	}
	return nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Request body too large (limit %d bytes)", maxErr.Limit), err)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid request body", err)
}
