package cli

import (
	"fmt"

	"careerkit/internal/usage"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the usage_logs table",
	Long: `Create the usage_logs table and its indexes in the configured usage store.
Use --driver to override usage.driver (postgres or sqlite).`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var migrateDriver string

func init() {
	migrateCmd.Flags().StringVar(&migrateDriver, "driver", "", "Usage store driver (default from config)")
	_ = migrateCmd.RegisterFlagCompletionFunc("driver", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"postgres", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	usageCfg := cfg.Usage
	if migrateDriver != "" {
		usageCfg.Driver = migrateDriver
	}
	// Open migrates below; skip the implicit pass
	usageCfg.AutoMigrate = false

	store, err := usage.Open(ctx, usageCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close usage store", "error", err)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate %s usage store: %w", usageCfg.Driver, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "usage_logs ready (driver: %s)\n", usageCfg.Driver)
	return nil
}
