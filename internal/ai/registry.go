package ai

import (
	"context"
	stderrors "errors"
	"fmt"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"
)

// Registry holds one Service per tool so each tool keeps its own provider,
// model and circuit breaker
type Registry struct {
	services map[types.ToolType]*Service
}

// NewRegistry creates the services of every supported tool
func NewRegistry(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Registry, error) {
	services := make(map[types.ToolType]*Service, len(types.AllToolTypes))
	for tool, toolCfg := range cfg.GetToolConfigs() {
		svc, err := NewService(ctx, tool, toolCfg, logger)
		if err != nil {
			for _, created := range services {
				_ = created.Close()
			}
			return nil, fmt.Errorf("failed to create AI service for %s: %w", tool, err)
		}
		services[tool] = svc
	}
	return &Registry{services: services}, nil
}

// NewRegistryFromServices wraps existing services
func NewRegistryFromServices(services ...*Service) *Registry {
	r := &Registry{services: make(map[types.ToolType]*Service, len(services))}
	for _, svc := range services {
		r.services[svc.Tool()] = svc
	}
	return r
}

// Service returns the service of a tool
func (r *Registry) Service(tool types.ToolType) (*Service, bool) {
	svc, ok := r.services[tool]
	return svc, ok
}

// Services returns the services in catalogue order
func (r *Registry) Services() []*Service {
	out := make([]*Service, 0, len(r.services))
	for _, tool := range types.AllToolTypes {
		if svc, ok := r.services[tool]; ok {
			out = append(out, svc)
		}
	}
	return out
}

// CircuitBreakerStats returns breaker statistics keyed by tool
func (r *Registry) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(r.services))
	for tool, svc := range r.services {
		stats[tool.String()] = svc.GetCircuitBreakerStats()
	}
	return stats
}

// Close closes every provider
func (r *Registry) Close() error {
	var errs []error
	for _, svc := range r.services {
		if err := svc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
