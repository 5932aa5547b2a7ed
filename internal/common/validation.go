package common

import (
	"fmt"
	"slices"

	"careerkit/internal/errors"
	"careerkit/internal/types"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

// ParseTool validates a --tool flag value
func ParseTool(name string) (types.ToolType, error) {
	tool, ok := types.ParseToolType(name)
	if !ok {
		return "", errors.NewValidationError(errors.ErrCodeInvalidToolType,
			fmt.Sprintf("unknown tool '%s'. Supported tools: %v", name, ToolNames()), nil)
	}
	return tool, nil
}

// ToolNames lists the tool names in catalogue order, for flag completion
func ToolNames() []string {
	names := make([]string, len(types.AllToolTypes))
	for i, tool := range types.AllToolTypes {
		names[i] = tool.String()
	}
	return names
}
