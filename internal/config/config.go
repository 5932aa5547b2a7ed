package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (CAREERKIT_AI_APIKEY, GROQ_API_KEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Usage         UsageConfig         `mapstructure:"usage"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds the upstream completion API configuration
type AIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	BaseURL          string               `mapstructure:"baseURL"`
	Timeout          time.Duration        `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       int                  `mapstructure:"maxRetries"`
	Temperature      float32              `mapstructure:"temperature"`
	MaxTokens        int64                `mapstructure:"maxTokens"`
	UseSystemPrompts bool                 `mapstructure:"useSystemPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// PromptBundle is an optional YAML file mapping tool types to prompts
	PromptBundle string `mapstructure:"promptBundle"`
	// WatchPrompts reloads prompt files and the bundle when they change
	WatchPrompts bool `mapstructure:"watchPrompts"`

	// Tool-specific overrides keyed by tool_type
	Tools map[string]OperationAIConfig `mapstructure:"tools"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds the resolved AI configuration for one tool.
// Pointer fields left nil fall back to the global AIConfig.
type OperationAIConfig struct {
	Provider         string                `mapstructure:"provider"`
	Model            string                `mapstructure:"model"`
	BaseURL          string                `mapstructure:"baseURL"`
	Timeout          *time.Duration        `mapstructure:"timeout"`
	APIKey           string                `mapstructure:"apiKey"`
	MaxRetries       *int                  `mapstructure:"maxRetries"`
	Temperature      *float32              `mapstructure:"temperature"`
	MaxTokens        *int64                `mapstructure:"maxTokens"`
	UseSystemPrompts *bool                 `mapstructure:"useSystemPrompts"`
	Prompts          ToolPromptConfig      `mapstructure:"prompts"`
	CircuitBreaker   *CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// ToolPromptConfig holds customizable prompts for a single tool
type ToolPromptConfig struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// AuthConfig holds session verification configuration
type AuthConfig struct {
	Mode            string          `mapstructure:"mode"` // "supabase" or "jwt"
	SupabaseURL     string          `mapstructure:"supabaseURL"`
	SupabaseAnonKey string          `mapstructure:"supabaseAnonKey"`
	JWTSecret       string          `mapstructure:"jwtSecret"`
	Audience        string          `mapstructure:"audience"`
	Leeway          time.Duration   `mapstructure:"leeway"`
	Timeout         time.Duration   `mapstructure:"timeout"`
	Cache           AuthCacheConfig `mapstructure:"cache"`
}

// AuthCacheConfig holds the Redis cache of verified sessions
type AuthCacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	RedisURL  string        `mapstructure:"redisURL"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"keyPrefix"`
}

// UsageConfig holds usage log storage configuration
type UsageConfig struct {
	Driver       string        `mapstructure:"driver"` // "postgres", "sqlite", "memory" or "none"
	DSN          string        `mapstructure:"dsn"`
	SQLitePath   string        `mapstructure:"sqlitePath"`
	MaxConns     int32         `mapstructure:"maxConns"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	AutoMigrate  bool          `mapstructure:"autoMigrate"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`

	// Request limits
	MaxRequestSize int64 `mapstructure:"maxRequestSize"`
	MaxInputChars  int   `mapstructure:"maxInputChars"`

	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// CORSConfig holds the headers sent to browser clients
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	AllowedHeaders []string `mapstructure:"allowedHeaders"`
	AllowedMethods []string `mapstructure:"allowedMethods"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int  `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int  `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByToken        bool `mapstructure:"byToken"`        // Enable per-session-token rate limiting
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	// LocalUserID is recorded as user_id for CLI and MCP generations
	LocalUserID string `mapstructure:"localUserID"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// BusinessMetricsConfig holds tool invocation metrics configuration
type BusinessMetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled               bool `mapstructure:"enabled"`
	TrackRateLimits       bool `mapstructure:"trackRateLimits"`
	TrackAuthFailures     bool `mapstructure:"trackAuthFailures"`
	TrackUsageLogFailures bool `mapstructure:"trackUsageLogFailures"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(viper.New(), "")
}

// LoadConfigFile loads configuration from an explicit file path
func LoadConfigFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, explicitFile string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)

	v.SetEnvPrefix("CAREERKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/careerkit/")
		v.AddConfigPath("$HOME/.careerkit")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || explicitFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

var (
	supportedProviders   = []string{"groq", "openai", "gemini"}
	supportedAuthModes   = []string{"supabase", "jwt"}
	supportedUsageDriver = []string{"postgres", "sqlite", "memory", "none"}
)

// Validate checks if the configuration is structurally valid.
// A missing upstream API key is not an error here: it is reported per request.
func (c *Config) Validate() error {
	if !slices.Contains(supportedProviders, c.AI.Provider) {
		return fmt.Errorf("unsupported AI provider: %s (must be one of %v)", c.AI.Provider, supportedProviders)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("AI maxRetries must not be negative")
	}

	for name, tool := range c.AI.Tools {
		if !IsKnownTool(name) {
			return fmt.Errorf("unknown tool in ai.tools: %s", name)
		}
		if tool.Provider != "" && !slices.Contains(supportedProviders, tool.Provider) {
			return fmt.Errorf("unsupported AI provider for tool %s: %s", name, tool.Provider)
		}
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("rate limit requestsPerMin must be positive when rate limiting is enabled")
	}

	if !slices.Contains(supportedAuthModes, c.Auth.Mode) {
		return fmt.Errorf("invalid auth mode: %s (must be 'supabase' or 'jwt')", c.Auth.Mode)
	}

	if c.Auth.Cache.Enabled && c.Auth.Cache.RedisURL == "" {
		return fmt.Errorf("auth cache requires redisURL")
	}

	if !slices.Contains(supportedUsageDriver, c.Usage.Driver) {
		return fmt.Errorf("invalid usage driver: %s (must be one of %v)", c.Usage.Driver, supportedUsageDriver)
	}

	if c.Usage.Driver == "sqlite" && c.Usage.SQLitePath == "" {
		return fmt.Errorf("usage sqlitePath is required for the sqlite driver")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}
