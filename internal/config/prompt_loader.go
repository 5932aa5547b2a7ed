package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// PromptFile identifies a prompt file referenced from configuration
type PromptFile struct {
	Tool string // tool_type the prompt belongs to
	Kind string // "system" or "user"
	Path string
}

// PromptFiles lists every prompt file referenced by the AI configuration,
// including the bundle, in a stable order
func (c *Config) PromptFiles() []PromptFile {
	var files []PromptFile
	for _, tool := range sortedToolNames(c.AI.Tools) {
		prompts := c.AI.Tools[tool].Prompts
		if prompts.SystemFile != "" {
			files = append(files, PromptFile{Tool: tool, Kind: "system", Path: prompts.SystemFile})
		}
		if prompts.UserFile != "" {
			files = append(files, PromptFile{Tool: tool, Kind: "user", Path: prompts.UserFile})
		}
	}
	if c.AI.PromptBundle != "" {
		files = append(files, PromptFile{Kind: "bundle", Path: c.AI.PromptBundle})
	}
	return files
}

// ReadPromptFile loads a prompt from a file with proper error handling and logging
func ReadPromptFile(filePath, kind, tool string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", kind, tool, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", kind, tool, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", kind, tool, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", kind, tool, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		kind, tool, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before anything loads them
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, file := range c.PromptFiles() {
		absPath, err := filepath.Abs(file.Path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", file.Kind, file.Tool, file.Path))
			continue
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", file.Kind, file.Tool, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

func sortedToolNames(tools map[string]OperationAIConfig) []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
