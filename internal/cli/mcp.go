package cli

import (
	"context"
	"fmt"

	"careerkit/internal/mcpserver"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the career tools over the Model Context Protocol (stdio)",
	Long: `Expose every career tool as an MCP tool on stdin/stdout so MCP clients
can call them. Calls run as app.localUserID and are written to the usage log.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	app, err := newApplication(ctx, cfg, logger, appOptions{})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer app.Close(context.WithoutCancel(ctx))

	principal, err := app.localPrincipal()
	if err != nil {
		return err
	}

	logger.Info("Serving MCP over stdio", "tools", len(app.ai.Services()))
	if err := mcpserver.Run(ctx, mcpserver.New(app.proxy, principal, Version, logger)); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}
