package cli

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/prompts"
	"careerkit/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP proxy for the career tools",
	Long: `Start the HTTP server that verifies the caller's session, renders the
tool prompt, calls the AI provider and logs usage.

Available endpoints:
- POST /functions/v1/groq-api: Run a tool (alias: POST /v1/generate)
- OPTIONS on both paths: CORS preflight
- GET /health: Provider health check
- GET /stats: Server statistics and rate limiting info
- GET /tools: Tool catalogue`,
	RunE: runServe,
}

var serveFlags struct {
	port string
	host string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	// Flags override the loaded configuration
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serveFlags.port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveFlags.host
	}

	app, err := newApplication(ctx, cfg, logger, appOptions{withVerifier: true, withObservability: true})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		app.Close(shutdownCtx)
	}()

	if cfg.AI.WatchPrompts {
		// The watcher logs every reload outcome itself
		watcher := prompts.NewWatcher(app.prompts, 0, logger)
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to watch prompt files: %w", err)
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.Warn("Failed to stop prompt watcher", "error", err)
			}
		}()
	}

	srv := server.NewServer(cfg, server.NewServerConfig(cfg, Version), server.Dependencies{
		Proxy:         app.proxy,
		AI:            app.ai,
		Prompts:       app.prompts,
		Observability: app.observability,
	}, logger)
	return srv.Start(ctx)
}
