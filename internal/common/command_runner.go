package common

import (
	"context"
	"fmt"
	"io"

	"careerkit/internal/errors"
	"careerkit/internal/types"
)

// CreateInputFunc defines how to create the specific AI input from file contents.
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc runs one generation for the prepared input.
type AIOperationFunc[Input any] func(context.Context, Input) (*types.GenerationResult, error)

// RunAICommand encapsulates the common logic for file-based CLI commands:
// read the input files, run the generation, report token usage and write
// the formatted result. Output goes to stdout unless cmdConfig.OutputFile
// is set.
func RunAICommand[Input any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	files []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input],
	logDetails LogDetailsFunc[Input],
) error {
	return runAICommand(ctx, logger, nil, cmdConfig, files, createInput, aiOperation, logDetails)
}

func runAICommand[Input any](
	ctx context.Context,
	logger *errors.Logger,
	stdout io.Writer,
	cmdConfig CommandConfig,
	files []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger, cmdConfig.MaxFileSize)
	outputHandler := NewOutputHandler(logger)
	if stdout != nil {
		outputHandler = NewOutputHandlerWithWriter(logger, stdout)
	}

	contents, err := fileProcessor.ValidateAndReadFiles(files...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := aiOperation(ctx, input)
	if err != nil {
		return err
	}

	logger.Info("AI token usage",
		"tool_type", result.ToolType,
		"model", result.Model,
		"total_tokens", result.TokensUsed,
		"duration", result.Duration)

	return outputHandler.HandleOutput(result, cmdConfig)
}
