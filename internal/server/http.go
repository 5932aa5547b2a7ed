package server

import (
	"time"

	"careerkit/internal/ai"
	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/observability"
	"careerkit/internal/prompts"
	"careerkit/internal/proxy"
)

const (
	// ProxyPath is the path browser clients call
	ProxyPath = "/functions/v1/groq-api"
	// GeneratePath is an alias of ProxyPath
	GeneratePath = "/v1/generate"
)

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Request pipeline and the registries behind it
	Proxy   *proxy.Service
	AI      *ai.Registry
	Prompts *prompts.Registry

	Observability *observability.ObservabilityManager

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Request size limit
	MaxRequestSize int64

	CORS config.CORSConfig

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host            string
	Port            string
	Version         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxRequestSize  int64
	CORS            config.CORSConfig
	RateLimit       *config.RateLimitConfig
}

// Dependencies are the components a Server routes requests to
type Dependencies struct {
	Proxy         *proxy.Service
	AI            *ai.Registry
	Prompts       *prompts.Registry
	Observability *observability.ObservabilityManager
}

// NewServerConfig derives the server settings from the application config
func NewServerConfig(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         version,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxRequestSize:  cfg.Server.MaxRequestSize,
		CORS:            cfg.Server.CORS,
		RateLimit:       &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		Proxy:           deps.Proxy,
		AI:              deps.AI,
		Prompts:         deps.Prompts,
		Observability:   deps.Observability,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: shutdownTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		CORS:            cfg.CORS,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		Logger:          logger,
	}
}
