package cli

import (
	"context"
	"fmt"

	"careerkit/internal/common"
	"careerkit/internal/proxy"
	"careerkit/internal/types"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate --tool <tool> [input-file]",
	Short: "Run a career tool locally against the configured AI provider",
	Long: `Run one of the career tools without going through the HTTP proxy.
The input file holds the resume or profile text. Use --job to pass a job
description file. mock_interview may be run with --job alone.

Tools:
  portfolio        HTML portfolio website
  resume_analyzer  ATS score and improvements (JSON)
  cover_letter     Tailored cover letter
  resume_enhancer  Resume rewritten for a job
  mock_interview   Interview questions with follow-ups (JSON)

The generation is recorded in the usage log under app.localUserID.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if _, err := common.ParseTool(generateFlags.tool); err != nil {
			return err
		}
		// Apply default format if not specified
		if generateConfig.OutputFormat == "" {
			generateConfig.OutputFormat = cfg.App.DefaultFormat
		}
		generateConfig.MaxFileSize = cfg.App.MaxFileSize
		// Validate format against supported formats
		return common.ValidateOutputFormat(generateConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runGenerate,
}

var (
	generateConfig common.CommandConfig
	generateFlags  struct {
		tool    string
		jobFile string
	}
)

func init() {
	generateCmd.Flags().StringVarP(&generateFlags.tool, "tool", "t", "", "Tool to run (required)")
	generateCmd.Flags().StringVarP(&generateFlags.jobFile, "job", "j", "", "Job description file")
	generateCmd.Flags().StringVarP(&generateConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	generateCmd.Flags().StringVar(&generateConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	_ = generateCmd.MarkFlagRequired("tool")

	_ = generateCmd.RegisterFlagCompletionFunc("tool", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.ToolNames(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = generateCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	tool, err := common.ParseTool(generateFlags.tool)
	if err != nil {
		return err
	}

	inputFile := ""
	if len(args) == 1 {
		inputFile = args[0]
	}
	if inputFile == "" && !(tool == types.ToolMockInterview && generateFlags.jobFile != "") {
		return fmt.Errorf("%s needs an input file", tool)
	}

	app, err := newApplication(ctx, cfg, logger, appOptions{})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer app.Close(context.WithoutCancel(ctx))

	principal, err := app.localPrincipal()
	if err != nil {
		return err
	}

	createInput := func(contents []string) (proxy.Request, error) {
		if len(contents) != 2 {
			return proxy.Request{}, fmt.Errorf("expected 2 file contents, got %d", len(contents))
		}
		return proxy.Request{
			Tool:           tool,
			UserInput:      contents[0],
			JobDescription: contents[1],
		}, nil
	}

	logDetails := func(req proxy.Request, cmdCfg common.CommandConfig) {
		logger.Info("Starting generation",
			"tool_type", req.Tool,
			"input_chars", len(req.UserInput),
			"job_chars", len(req.JobDescription),
			"output_format", cmdCfg.OutputFormat)
	}

	generate := func(ctx context.Context, req proxy.Request) (*types.GenerationResult, error) {
		return app.proxy.Generate(ctx, principal, req)
	}

	err = common.RunAICommand(
		ctx,
		logger,
		generateConfig,
		[]string{inputFile, generateFlags.jobFile},
		createInput,
		generate,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", tool, err)
	}
	logger.Info("Generation completed successfully", "tool_type", tool)
	return nil
}
