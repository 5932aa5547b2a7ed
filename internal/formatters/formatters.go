package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"careerkit/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("json", "GenerationResult", &GenerationJSONFormatter{})
	registry.RegisterFormatter("text", "GenerationResult", &GenerationTextFormatter{registry: registry})
	registry.RegisterFormatter("markdown", "GenerationResult", &GenerationMarkdownFormatter{registry: registry})
	registry.RegisterFormatter("text", "ResumeAnalysis", &ResumeAnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "ResumeAnalysis", &ResumeAnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "InterviewQuestions", &InterviewTextFormatter{})
	registry.RegisterFormatter("markdown", "InterviewQuestions", &InterviewMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.GenerationResult, *types.GenerationResult:
		return "GenerationResult"
	case types.ResumeAnalysis:
		return "ResumeAnalysis"
	case types.InterviewQuestions:
		return "InterviewQuestions"
	default:
		return "any"
	}
}

func asGenerationResult(data any) (types.GenerationResult, error) {
	switch v := data.(type) {
	case types.GenerationResult:
		return v, nil
	case *types.GenerationResult:
		if v == nil {
			return types.GenerationResult{}, fmt.Errorf("nil GenerationResult")
		}
		return *v, nil
	default:
		return types.GenerationResult{}, fmt.Errorf("expected GenerationResult, got %T", data)
	}
}

// structured returns the parsed output of JSON-producing tools, or nil when
// the tool produces free text or the model did not return valid JSON
func structured(result types.GenerationResult) any {
	if !result.ToolType.ProducesJSON() {
		return nil
	}
	parsed, err := types.ParseStructured(result.ToolType, result.Content)
	if err != nil {
		return nil
	}
	return parsed
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// GenerationJSONFormatter emits the result with the parsed analysis embedded
// for JSON-producing tools
type GenerationJSONFormatter struct{}

func (gjf *GenerationJSONFormatter) Format(data any) (string, error) {
	result, err := asGenerationResult(data)
	if err != nil {
		return "", err
	}

	out := map[string]any{
		"tool_type":   result.ToolType,
		"tokens_used": result.TokensUsed,
		"model":       result.Model,
		"content":     result.Content,
	}
	if parsed := structured(result); parsed != nil {
		out["result"] = parsed
	}
	return (&JSONFormatter{}).Format(out)
}

func (gjf *GenerationJSONFormatter) SupportedType() string {
	return "GenerationResult"
}

// GenerationTextFormatter prints the generated content under a title
type GenerationTextFormatter struct {
	registry *FormatterRegistry
}

func (gtf *GenerationTextFormatter) Format(data any) (string, error) {
	result, err := asGenerationResult(data)
	if err != nil {
		return "", err
	}
	if parsed := structured(result); parsed != nil {
		return gtf.registry.Format(parsed, "text")
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("=== %s ===\n\n", strings.ToUpper(result.ToolType.Title())))
	output.WriteString(strings.TrimSpace(result.Content))
	output.WriteString("\n")
	return output.String(), nil
}

func (gtf *GenerationTextFormatter) SupportedType() string {
	return "GenerationResult"
}

// GenerationMarkdownFormatter renders the generated content as a markdown document
type GenerationMarkdownFormatter struct {
	registry *FormatterRegistry
}

func (gmf *GenerationMarkdownFormatter) Format(data any) (string, error) {
	result, err := asGenerationResult(data)
	if err != nil {
		return "", err
	}
	if parsed := structured(result); parsed != nil {
		return gmf.registry.Format(parsed, "markdown")
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# %s\n\n", result.ToolType.Title()))
	if result.ToolType == types.ToolPortfolio {
		// The portfolio is an HTML document, keep it verbatim
		output.WriteString("```html\n")
		output.WriteString(types.StripCodeFence(result.Content))
		output.WriteString("\n```\n")
	} else {
		output.WriteString(strings.TrimSpace(result.Content))
		output.WriteString("\n")
	}
	if result.Model != "" || result.TokensUsed > 0 {
		output.WriteString(fmt.Sprintf("\n---\n*Model: %s, tokens used: %d*\n", result.Model, result.TokensUsed))
	}
	return output.String(), nil
}

func (gmf *GenerationMarkdownFormatter) SupportedType() string {
	return "GenerationResult"
}

// ResumeAnalysisTextFormatter handles text formatting for resume analyses
type ResumeAnalysisTextFormatter struct{}

func (ratf *ResumeAnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ResumeAnalysis)
	if !ok {
		return "", fmt.Errorf("expected ResumeAnalysis, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== RESUME ANALYSIS ===\n")
	output.WriteString(fmt.Sprintf("ATS Score: %d/100\n\n", result.ATSScore))
	writeTextList(&output, "Missing Keywords", result.MissingKeywords)
	writeTextList(&output, "Improvements", result.Improvements)
	writeTextList(&output, "Strengths", result.Strengths)
	writeTextList(&output, "Recommendations", result.Recommendations)
	return output.String(), nil
}

func (ratf *ResumeAnalysisTextFormatter) SupportedType() string {
	return "ResumeAnalysis"
}

// ResumeAnalysisMarkdownFormatter handles markdown formatting for resume analyses
type ResumeAnalysisMarkdownFormatter struct{}

func (ramf *ResumeAnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ResumeAnalysis)
	if !ok {
		return "", fmt.Errorf("expected ResumeAnalysis, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Resume Analysis\n\n")
	output.WriteString(fmt.Sprintf("**ATS Score:** %d/100\n\n", result.ATSScore))
	writeMarkdownList(&output, "Missing Keywords", result.MissingKeywords)
	writeMarkdownList(&output, "Improvements", result.Improvements)
	writeMarkdownList(&output, "Strengths", result.Strengths)
	if len(result.Recommendations) > 0 {
		output.WriteString("## Recommendations\n\n")
		for i, recommendation := range result.Recommendations {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, recommendation))
		}
	}
	return output.String(), nil
}

func (ramf *ResumeAnalysisMarkdownFormatter) SupportedType() string {
	return "ResumeAnalysis"
}

// InterviewTextFormatter handles text formatting for mock interview questions
type InterviewTextFormatter struct{}

func (itf *InterviewTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.InterviewQuestions)
	if !ok {
		return "", fmt.Errorf("expected InterviewQuestions, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== MOCK INTERVIEW ===\n\n")
	for i, q := range result.Questions {
		output.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, q.Type, q.Question))
		if q.FollowUp != "" {
			output.WriteString(fmt.Sprintf("   Follow-up: %s\n", q.FollowUp))
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (itf *InterviewTextFormatter) SupportedType() string {
	return "InterviewQuestions"
}

// InterviewMarkdownFormatter handles markdown formatting for mock interview questions
type InterviewMarkdownFormatter struct{}

func (imf *InterviewMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.InterviewQuestions)
	if !ok {
		return "", fmt.Errorf("expected InterviewQuestions, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Mock Interview\n\n")
	for i, q := range result.Questions {
		output.WriteString(fmt.Sprintf("## Question %d (%s)\n\n", i+1, q.Type))
		output.WriteString(q.Question)
		output.WriteString("\n\n")
		if q.FollowUp != "" {
			output.WriteString(fmt.Sprintf("**Follow-up:** %s\n\n", q.FollowUp))
		}
	}
	return output.String(), nil
}

func (imf *InterviewMarkdownFormatter) SupportedType() string {
	return "InterviewQuestions"
}

func writeTextList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(title + ":\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func writeMarkdownList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(fmt.Sprintf("## %s\n\n", title))
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
