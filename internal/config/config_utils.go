package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// legacyEnvFallbacks maps environment variables used by the hosted function
// onto the config fields they populate when those are still empty.
var legacyEnvFallbacks = []struct {
	env    string
	target func(*Config) *string
}{
	{"GROQ_API_KEY", func(c *Config) *string { return &c.AI.APIKey }},
	{"SUPABASE_URL", func(c *Config) *string { return &c.Auth.SupabaseURL }},
	{"SUPABASE_ANON_KEY", func(c *Config) *string { return &c.Auth.SupabaseAnonKey }},
	{"SUPABASE_JWT_SECRET", func(c *Config) *string { return &c.Auth.JWTSecret }},
	{"DATABASE_URL", func(c *Config) *string { return &c.Usage.DSN }},
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyLegacyEnvFallbacks()
	c.applyUsageDefaults()
	c.applyObservabilityDefaults()
}

// applyLegacyEnvFallbacks fills empty fields from the legacy environment
func (c *Config) applyLegacyEnvFallbacks() {
	for _, fb := range legacyEnvFallbacks {
		field := fb.target(c)
		if *field != "" {
			continue
		}
		if value := strings.TrimSpace(os.Getenv(fb.env)); value != "" {
			*field = value
		}
	}
}

// applyUsageDefaults selects the postgres driver when only a DSN was provided
func (c *Config) applyUsageDefaults() {
	if c.Usage.Driver == "none" && c.Usage.DSN != "" {
		log.Println("[CONFIG] Usage DSN set without a driver, using postgres")
		c.Usage.Driver = "postgres"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// isSensitiveEnv reports whether an environment variable holds a secret
func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"key", "secret", "token", "url", "dsn"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CAREERKIT_AI_APIKEY",
		"CAREERKIT_AI_PROVIDER",
		"CAREERKIT_AI_MODEL",
		"CAREERKIT_AUTH_MODE",
		"CAREERKIT_USAGE_DRIVER",
		"CAREERKIT_SERVER_PORT",
		"CAREERKIT_SERVER_HOST",
		"CAREERKIT_APP_LOGLEVEL",
		"CAREERKIT_VAULT_ENABLED",
	}
	for _, fb := range legacyEnvFallbacks {
		envVars = append(envVars, fb.env)
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Auth Mode: %s", c.Auth.Mode)
	log.Printf("[CONFIG] Auth Cache Enabled: %t", c.Auth.Cache.Enabled)
	log.Printf("[CONFIG] Usage Driver: %s", c.Usage.Driver)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	if len(c.AI.Tools) > 0 {
		log.Println("[CONFIG] === Tool-Specific AI Configurations ===")
		for name, tool := range c.AI.Tools {
			log.Printf("[CONFIG] %s - Provider: %s, Model: %s", name, tool.Provider, tool.Model)
		}
	}

	log.Println("[CONFIG] =====================================")
}
