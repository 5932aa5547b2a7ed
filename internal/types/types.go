package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ToolType selects which prompt template a request is rendered with
type ToolType string

const (
	ToolPortfolio      ToolType = "portfolio"
	ToolResumeAnalyzer ToolType = "resume_analyzer"
	ToolCoverLetter    ToolType = "cover_letter"
	ToolResumeEnhancer ToolType = "resume_enhancer"
	ToolMockInterview  ToolType = "mock_interview"
)

// AllToolTypes lists every supported tool in catalogue order
var AllToolTypes = []ToolType{
	ToolPortfolio,
	ToolResumeAnalyzer,
	ToolCoverLetter,
	ToolResumeEnhancer,
	ToolMockInterview,
}

// ParseToolType returns the ToolType for s. It is case-sensitive, matching
// the wire values exactly.
func ParseToolType(s string) (ToolType, bool) {
	for _, t := range AllToolTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// String implements fmt.Stringer
func (t ToolType) String() string {
	return string(t)
}

// ProducesJSON reports whether the tool's prompt asks the model for JSON output
func (t ToolType) ProducesJSON() bool {
	return t == ToolResumeAnalyzer || t == ToolMockInterview
}

// Title is a human-readable name used by the CLI and the MCP surface
func (t ToolType) Title() string {
	switch t {
	case ToolPortfolio:
		return "Portfolio Generator"
	case ToolResumeAnalyzer:
		return "Resume Analyzer"
	case ToolCoverLetter:
		return "Cover Letter Generator"
	case ToolResumeEnhancer:
		return "Resume Enhancer"
	case ToolMockInterview:
		return "Mock Interview"
	default:
		return strings.ReplaceAll(string(t), "_", " ")
	}
}

// Description explains what the tool produces
func (t ToolType) Description() string {
	switch t {
	case ToolPortfolio:
		return "Generate a single-file responsive HTML portfolio website from resume information."
	case ToolResumeAnalyzer:
		return "Analyze a resume against a job description and return an ATS score with improvements as JSON."
	case ToolCoverLetter:
		return "Write a tailored 3-4 paragraph cover letter from a resume and a job description."
	case ToolResumeEnhancer:
		return "Rewrite a resume to better match a target job description while keeping it truthful."
	case ToolMockInterview:
		return "Generate five behavioral and technical interview questions with follow-ups as JSON."
	default:
		return ""
	}
}

// ToolRequest is the body accepted by the proxy endpoint
type ToolRequest struct {
	ToolType       string `json:"tool_type"`
	UserInput      string `json:"user_input"`
	JobDescription string `json:"job_description,omitempty"`
}

// ToolResponse is the envelope returned by the proxy endpoint on every path
type ToolResponse struct {
	Success    bool   `json:"success"`
	Data       string `json:"data,omitempty"`
	TokensUsed *int64 `json:"tokens_used,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SuccessResponse builds the success envelope; tokens_used is always present
func SuccessResponse(data string, tokensUsed int64) ToolResponse {
	return ToolResponse{
		Success:    true,
		Data:       data,
		TokensUsed: &tokensUsed,
	}
}

// FailureResponse builds the failure envelope
func FailureResponse(message string) ToolResponse {
	return ToolResponse{
		Success: false,
		Error:   message,
	}
}

// GenerationResult is the outcome of a single proxied generation
type GenerationResult struct {
	ToolType   ToolType      `json:"tool_type"`
	Content    string        `json:"content"`
	TokensUsed int64         `json:"tokens_used"`
	Model      string        `json:"model,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// ResumeAnalysis is the JSON shape the resume_analyzer prompt asks for
type ResumeAnalysis struct {
	ATSScore        int      `json:"ats_score"`
	MissingKeywords []string `json:"missing_keywords"`
	Improvements    []string `json:"improvements"`
	Strengths       []string `json:"strengths"`
	Recommendations []string `json:"recommendations"`
}

// InterviewQuestion is a single mock_interview question
type InterviewQuestion struct {
	Question string `json:"question"`
	Type     string `json:"type"`
	FollowUp string `json:"follow_up"`
}

// InterviewQuestions is the JSON shape the mock_interview prompt asks for
type InterviewQuestions struct {
	Questions []InterviewQuestion `json:"questions"`
}

// ParseStructured decodes the model output of JSON-producing tools. Models
// often wrap JSON in a markdown fence, which is stripped first.
func ParseStructured(tool ToolType, content string) (any, error) {
	raw := StripCodeFence(content)
	switch tool {
	case ToolResumeAnalyzer:
		var out ResumeAnalysis
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("failed to parse resume analysis: %w", err)
		}
		return out, nil
	case ToolMockInterview:
		var out InterviewQuestions
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("failed to parse interview questions: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tool %s does not produce structured output", tool)
	}
}

// StripCodeFence removes a surrounding ``` or ```json fence if present
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
