package config

import (
	"careerkit/internal/types"
)

// DefaultGroqBaseURL is the OpenAI-compatible endpoint of Groq
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// IsKnownTool reports whether name is a supported tool_type
func IsKnownTool(name string) bool {
	_, ok := types.ParseToolType(name)
	return ok
}

// applyOperationDefaults applies global defaults to tool-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.BaseURL == "" && opCfg.Provider == "groq" {
		opCfg.BaseURL = DefaultGroqBaseURL
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.MaxTokens == nil {
		maxTokens := c.AI.MaxTokens
		opCfg.MaxTokens = &maxTokens
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		useSystem := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystem
	}
	if opCfg.CircuitBreaker == nil {
		breaker := c.AI.CircuitBreaker
		opCfg.CircuitBreaker = &breaker
	}
}

// GetToolConfig returns the AI configuration for a tool with fallback to global config.
// Every pointer field of the result is set.
func (c *Config) GetToolConfig(tool types.ToolType) OperationAIConfig {
	config := c.AI.Tools[tool.String()]
	c.applyOperationDefaults(&config)
	return config
}

// GetToolConfigs resolves the configuration of every supported tool
func (c *Config) GetToolConfigs() map[types.ToolType]OperationAIConfig {
	configs := make(map[types.ToolType]OperationAIConfig, len(types.AllToolTypes))
	for _, tool := range types.AllToolTypes {
		configs[tool] = c.GetToolConfig(tool)
	}
	return configs
}
