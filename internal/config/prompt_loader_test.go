package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePromptFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestPromptFiles(t *testing.T) {
	config := &Config{
		AI: AIConfig{
			PromptBundle: "prompts.yaml",
			Tools: map[string]OperationAIConfig{
				"resume_analyzer": {Prompts: ToolPromptConfig{UserFile: "analyzer.user.md"}},
				"cover_letter": {Prompts: ToolPromptConfig{
					SystemFile: "cover.system.md",
					UserFile:   "cover.user.md",
				}},
				"portfolio": {Prompts: ToolPromptConfig{User: "inline only"}},
			},
		},
	}

	expected := []PromptFile{
		{Tool: "cover_letter", Kind: "system", Path: "cover.system.md"},
		{Tool: "cover_letter", Kind: "user", Path: "cover.user.md"},
		{Tool: "resume_analyzer", Kind: "user", Path: "analyzer.user.md"},
		{Kind: "bundle", Path: "prompts.yaml"},
	}
	assert.Equal(t, expected, config.PromptFiles())
}

func TestValidatePromptFiles(t *testing.T) {
	tempDir := t.TempDir()
	validFile := writePromptFile(t, tempDir, "valid.md", "Valid content")

	t.Run("existing files", func(t *testing.T) {
		config := &Config{AI: AIConfig{Tools: map[string]OperationAIConfig{
			"portfolio": {Prompts: ToolPromptConfig{UserFile: validFile}},
		}}}
		assert.NoError(t, config.validatePromptFiles())
	})

	t.Run("missing file", func(t *testing.T) {
		config := &Config{AI: AIConfig{
			PromptBundle: filepath.Join(tempDir, "missing-bundle.yaml"),
			Tools: map[string]OperationAIConfig{
				"portfolio": {Prompts: ToolPromptConfig{SystemFile: filepath.Join(tempDir, "missing.md")}},
			},
		}}
		err := config.validatePromptFiles()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "system portfolio prompt file not found")
		assert.Contains(t, err.Error(), "missing-bundle.yaml")
	})

	t.Run("no files configured", func(t *testing.T) {
		assert.NoError(t, (&Config{}).validatePromptFiles())
	})
}

func TestReadPromptFile(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("trims content", func(t *testing.T) {
		path := writePromptFile(t, tempDir, "user.md", "\n  Write a letter for %[1]s  \n\n")
		content, err := ReadPromptFile(path, "user", "cover_letter")
		require.NoError(t, err)
		assert.Equal(t, "Write a letter for %[1]s", content)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writePromptFile(t, tempDir, "empty.md", "   \n")
		_, err := ReadPromptFile(path, "user", "cover_letter")
		assert.ErrorContains(t, err, "is empty")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadPromptFile(filepath.Join(tempDir, "nope.md"), "system", "portfolio")
		assert.ErrorContains(t, err, "system portfolio prompt file not found")
	})
}
