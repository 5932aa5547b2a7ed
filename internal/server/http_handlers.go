package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"careerkit/internal/ai"
	"careerkit/internal/types"

	"golang.org/x/sync/errgroup"
)

// getHealthCheckTimeout returns the configured model check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig == nil {
		return 10 * time.Second
	}
	hc := s.AppConfig.Observability.HealthCheck
	if hc.AIModelCheckTimeout > 0 {
		return hc.AIModelCheckTimeout
	}
	if hc.Timeout > 0 {
		return hc.Timeout
	}
	return 10 * time.Second
}

// healthHandler reports model availability and breaker state per tool
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "careerkit",
		"version": s.Version,
	}

	aiStatus, healthy := s.checkAIModelsHealth(r.Context())
	response["ai_models"] = aiStatus
	response["circuit_breakers"] = s.checkCircuitBreakerHealth()

	for _, svc := range s.services() {
		if !svc.IsHealthy() {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, response)
}

// checkAIModelsHealth queries every tool's model concurrently
func (s *Server) checkAIModelsHealth(ctx context.Context) (map[string]any, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()

	services := s.services()
	infos := make([]*ai.ModelInfo, len(services))

	g, gctx := errgroup.WithContext(ctx)
	for i, svc := range services {
		g.Go(func() error {
			infos[i] = svc.GetModelInfo(gctx)
			return nil
		})
	}
	_ = g.Wait()

	healthy := true
	aiStatus := make(map[string]any, len(services))
	for i, svc := range services {
		info := infos[i]
		if info == nil {
			info = &ai.ModelInfo{Name: svc.Model(), Provider: svc.ProviderName(), Error: "no model information"}
		}
		if !info.Available {
			healthy = false
		}
		aiStatus[svc.Tool().String()] = info
	}
	return aiStatus, healthy
}

// checkCircuitBreakerHealth returns the breaker statistics of every tool
func (s *Server) checkCircuitBreakerHealth() map[string]any {
	if s.AI == nil {
		return map[string]any{}
	}
	return s.AI.CircuitBreakerStats()
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	response := map[string]any{
		"service": "careerkit",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"circuit_breakers": s.checkCircuitBreakerHealth(),
	}

	if s.AppConfig != nil {
		response["server"].(map[string]any)["max_input_chars"] = s.AppConfig.Server.MaxInputChars
		response["usage"] = map[string]any{"driver": s.AppConfig.Usage.Driver}
		response["auth"] = map[string]any{
			"mode":          s.AppConfig.Auth.Mode,
			"cache_enabled": s.AppConfig.Auth.Cache.Enabled,
		}
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	// Add configuration info
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_token":         s.RateLimit.ByToken,
		}
	}

	if s.Prompts != nil {
		response["prompt_sources"] = s.Prompts.Sources()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// toolInfo describes one tool in the catalogue
type toolInfo struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ProducesJSON bool   `json:"produces_json"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
}

// toolsHandler lists the supported tools in catalogue order
func (s *Server) toolsHandler(w http.ResponseWriter, _ *http.Request) {
	tools := make([]toolInfo, 0, len(types.AllToolTypes))
	for _, tool := range types.AllToolTypes {
		info := toolInfo{
			Name:         tool.String(),
			Title:        tool.Title(),
			Description:  tool.Description(),
			ProducesJSON: tool.ProducesJSON(),
		}
		if s.AI != nil {
			if svc, ok := s.AI.Service(tool); ok {
				info.Provider = svc.ProviderName()
				info.Model = svc.Model()
			}
		}
		tools = append(tools, info)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func (s *Server) services() []*ai.Service {
	if s.AI == nil {
		return nil
	}
	return s.AI.Services()
}

// writeJSON writes v as a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.Logger != nil {
		s.Logger.LogError(err, "Failed to encode response")
	}
}

// writeEnvelope writes the proxy response envelope
func writeEnvelope(w http.ResponseWriter, status int, resp types.ToolResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
