package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"careerkit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfigFile(writeConfigFile(t, "app:\n  logLevel: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.AI.Provider)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.AI.Model)
	assert.Equal(t, float32(0.7), cfg.AI.Temperature)
	assert.Equal(t, int64(4000), cfg.AI.MaxTokens)
	assert.Equal(t, 0, cfg.AI.MaxRetries)
	assert.Equal(t, "supabase", cfg.Auth.Mode)
	assert.Equal(t, "authenticated", cfg.Auth.Audience)
	assert.Equal(t, "none", cfg.Usage.Driver)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, []string{"authorization", "x-client-info", "apikey", "content-type"}, cfg.Server.CORS.AllowedHeaders)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigLegacyEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_legacy")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("DATABASE_URL", "postgres://localhost/careerkit")

	cfg, err := LoadConfigFile(writeConfigFile(t, "auth:\n  mode: supabase\n"))
	require.NoError(t, err)

	assert.Equal(t, "gsk_legacy", cfg.AI.APIKey)
	assert.Equal(t, "https://abc.supabase.co", cfg.Auth.SupabaseURL)
	assert.Equal(t, "anon", cfg.Auth.SupabaseAnonKey)
	assert.Equal(t, "postgres://localhost/careerkit", cfg.Usage.DSN)
	assert.Equal(t, "postgres", cfg.Usage.Driver)
}

func TestLoadConfigPrefixedEnvWins(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_legacy")
	t.Setenv("CAREERKIT_AI_APIKEY", "gsk_prefixed")

	cfg, err := LoadConfigFile(writeConfigFile(t, "ai:\n  provider: groq\n"))
	require.NoError(t, err)
	assert.Equal(t, "gsk_prefixed", cfg.AI.APIKey)
}

func TestLoadConfigMissingKeyIsNotAnError(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := LoadConfigFile(writeConfigFile(t, "ai:\n  apiKey: \"\"\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.AI.APIKey)
}

func TestGetToolConfig(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfigFile(t, `
ai:
  apiKey: gsk_global
  timeout: 45s
  tools:
    cover_letter:
      model: llama-3.1-8b-instant
      temperature: 0.3
      timeout: 20s
      maxTokens: 1200
      circuitBreaker:
        enabled: false
`))
	require.NoError(t, err)

	t.Run("override", func(t *testing.T) {
		tool := cfg.GetToolConfig(types.ToolCoverLetter)
		assert.Equal(t, "groq", tool.Provider)
		assert.Equal(t, "llama-3.1-8b-instant", tool.Model)
		assert.Equal(t, DefaultGroqBaseURL, tool.BaseURL)
		assert.Equal(t, "gsk_global", tool.APIKey)
		assert.Equal(t, float32(0.3), *tool.Temperature)
		assert.Equal(t, 20*time.Second, *tool.Timeout)
		assert.Equal(t, int64(1200), *tool.MaxTokens)
		assert.Equal(t, 0, *tool.MaxRetries)
		assert.False(t, tool.CircuitBreaker.Enabled)
	})

	t.Run("global fallback", func(t *testing.T) {
		tool := cfg.GetToolConfig(types.ToolPortfolio)
		assert.Equal(t, "llama-3.1-70b-versatile", tool.Model)
		assert.Equal(t, float32(0.7), *tool.Temperature)
		assert.Equal(t, 45*time.Second, *tool.Timeout)
		assert.Equal(t, int64(4000), *tool.MaxTokens)
		assert.True(t, tool.CircuitBreaker.Enabled)
		assert.False(t, *tool.UseSystemPrompts)
	})

	t.Run("fallback does not alias global config", func(t *testing.T) {
		tool := cfg.GetToolConfig(types.ToolMockInterview)
		*tool.Temperature = 1.5
		assert.Equal(t, float32(0.7), cfg.AI.Temperature)
	})

	assert.Len(t, cfg.GetToolConfigs(), len(types.AllToolTypes))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI:     AIConfig{Provider: "groq", Timeout: time.Minute},
			Auth:   AuthConfig{Mode: "supabase"},
			Usage:  UsageConfig{Driver: "memory"},
			Server: ServerConfig{Port: "8080"},
			App:    AppConfig{DefaultFormat: "text", SupportedFormats: []string{"json", "text", "markdown"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "claude" }, wantErr: "unsupported AI provider"},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, wantErr: "AI timeout must be positive"},
		{name: "negative retries", mutate: func(c *Config) { c.AI.MaxRetries = -1 }, wantErr: "maxRetries"},
		{
			name:    "unknown tool override",
			mutate:  func(c *Config) { c.AI.Tools = map[string]OperationAIConfig{"tailor": {}} },
			wantErr: "unknown tool in ai.tools: tailor",
		},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server port is required"},
		{
			name: "rate limit without budget",
			mutate: func(c *Config) {
				c.Server.RateLimit = RateLimitConfig{Enabled: true}
			},
			wantErr: "requestsPerMin must be positive",
		},
		{name: "bad auth mode", mutate: func(c *Config) { c.Auth.Mode = "basic" }, wantErr: "invalid auth mode"},
		{
			name:    "cache without redis",
			mutate:  func(c *Config) { c.Auth.Cache.Enabled = true },
			wantErr: "auth cache requires redisURL",
		},
		{name: "bad usage driver", mutate: func(c *Config) { c.Usage.Driver = "mysql" }, wantErr: "invalid usage driver"},
		{name: "bad default format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "invalid default format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
