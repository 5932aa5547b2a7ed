package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "groq")
	v.SetDefault("ai.model", "llama-3.1-70b-versatile")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 0) // Every call bills tokens, so no retries unless asked for
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.maxTokens", 4000)
	v.SetDefault("ai.useSystemPrompts", false)
	v.SetDefault("ai.promptBundle", "")
	v.SetDefault("ai.watchPrompts", false)

	// Circuit Breaker Configuration defaults shared by all tools
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 5)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Auth Configuration
	v.SetDefault("auth.mode", "supabase")
	v.SetDefault("auth.supabaseURL", "")
	v.SetDefault("auth.supabaseAnonKey", "")
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.audience", "authenticated")
	v.SetDefault("auth.leeway", 30*time.Second)
	v.SetDefault("auth.timeout", 10*time.Second)
	v.SetDefault("auth.cache.enabled", false)
	v.SetDefault("auth.cache.redisURL", "")
	// Upper bound on how long a revoked session is still accepted; entries
	// never outlive the token's exp claim
	v.SetDefault("auth.cache.ttl", 60*time.Second)
	v.SetDefault("auth.cache.keyPrefix", "careerkit:auth:")

	// Usage log Configuration
	v.SetDefault("usage.driver", "none")
	v.SetDefault("usage.dsn", "")
	v.SetDefault("usage.sqlitePath", "careerkit.db")
	v.SetDefault("usage.maxConns", 4)
	v.SetDefault("usage.writeTimeout", 5*time.Second)
	v.SetDefault("usage.autoMigrate", true)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 90*time.Second) // Upstream completions can be slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("server.maxRequestSize", 1024*1024) // 1MB
	v.SetDefault("server.maxInputChars", 100000)

	// CORS defaults match what browser clients of the hosted function send
	v.SetDefault("server.cors.allowedOrigins", []string{"*"})
	v.SetDefault("server.cors.allowedHeaders", []string{"authorization", "x-client-info", "apikey", "content-type"})
	v.SetDefault("server.cors.allowedMethods", []string{"POST", "OPTIONS"})

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 30)
	v.SetDefault("server.rateLimit.burstCapacity", 5)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byToken", false)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB
	v.SetDefault("app.localUserID", "00000000-0000-0000-0000-000000000000")

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.aiKey", "")
	v.SetDefault("vault.secrets.supabase", "")
	v.SetDefault("vault.secrets.database", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "careerkit")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackAuthFailures", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackUsageLogFailures", true)

	// Console Configuration
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Health Check Configuration
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
