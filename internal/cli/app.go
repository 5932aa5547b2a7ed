package cli

import (
	"context"
	"fmt"
	"io"

	"careerkit/internal/ai"
	"careerkit/internal/auth"
	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/observability"
	"careerkit/internal/prompts"
	"careerkit/internal/proxy"
	"careerkit/internal/usage"

	"github.com/google/uuid"
)

// application holds the components shared by generate, serve and mcp
type application struct {
	cfg           *config.Config
	logger        *errors.Logger
	observability *observability.ObservabilityManager
	ai            *ai.Registry
	prompts       *prompts.Registry
	store         usage.Store
	verifier      auth.Verifier
	proxy         *proxy.Service
}

type appOptions struct {
	// withVerifier builds the session verifier; only the HTTP server needs one
	withVerifier bool
	// withObservability starts the OpenTelemetry pipeline
	withObservability bool
}

func newApplication(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts appOptions) (*application, error) {
	app := &application{cfg: cfg, logger: logger}

	if opts.withObservability {
		obs, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize observability: %w", err)
		}
		app.observability = obs
	}

	aiRegistry, err := ai.NewRegistry(ctx, cfg, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.ai = aiRegistry

	promptRegistry, err := prompts.NewRegistry(cfg, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.prompts = promptRegistry

	store, err := usage.Open(ctx, cfg.Usage, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.store = store

	if opts.withVerifier {
		verifier, err := auth.NewVerifier(cfg.Auth, logger)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
		app.verifier = verifier
	}

	metrics := app.observability.GetMetrics()
	app.proxy = proxy.New(proxy.Options{
		AI:              app.ai,
		Prompts:         app.prompts,
		Verifier:        app.verifier,
		Recorder:        usage.NewRecorder(store, cfg.Usage.WriteTimeout, logger, metrics),
		Metrics:         metrics,
		Logger:          logger,
		MaxInputChars:   cfg.Server.MaxInputChars,
		DefaultProvider: cfg.AI.Provider,
		DefaultAPIKey:   cfg.AI.APIKey,
	})
	return app, nil
}

// localPrincipal is the user recorded for generations that run without a session
func (a *application) localPrincipal() (*auth.Principal, error) {
	id, err := uuid.Parse(a.cfg.App.LocalUserID)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Invalid app.localUserID: %s", a.cfg.App.LocalUserID), err)
	}
	return &auth.Principal{ID: id}, nil
}

// Close releases everything newApplication opened
func (a *application) Close(ctx context.Context) {
	if closer, ok := a.verifier.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("Failed to close auth cache", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close usage store", "error", err)
		}
	}
	if a.ai != nil {
		if err := a.ai.Close(); err != nil {
			a.logger.Warn("Failed to close AI providers", "error", err)
		}
	}
	if err := a.observability.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to shut down observability", "error", err)
	}
}
