// Package mcpserver exposes the career tools over the Model Context Protocol.
package mcpserver

import (
	"context"

	"careerkit/internal/auth"
	"careerkit/internal/errors"
	"careerkit/internal/proxy"
	"careerkit/internal/types"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolInput is the argument object of every tool
type ToolInput struct {
	UserInput      string `json:"user_input,omitempty" jsonschema:"Resume text or background information"`
	JobDescription string `json:"job_description,omitempty" jsonschema:"Target job description or role"`
}

// ToolOutput is the structured result of a tool call
type ToolOutput struct {
	ToolType   string `json:"tool_type"`
	Content    string `json:"content"`
	TokensUsed int64  `json:"tokens_used"`
	Model      string `json:"model,omitempty"`
}

// New creates an MCP server with one tool per ToolType. Every call is made
// as principal and goes through the same pipeline as HTTP requests.
func New(svc *proxy.Service, principal *auth.Principal, version string, logger *errors.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "careerkit",
		Version: version,
	}, nil)

	for _, tool := range types.AllToolTypes {
		registerTool(server, svc, principal, tool, logger)
	}
	return server
}

func registerTool(server *mcp.Server, svc *proxy.Service, principal *auth.Principal, tool types.ToolType, logger *errors.Logger) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        tool.String(),
		Title:       tool.Title(),
		Description: tool.Description(),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ToolInput) (*mcp.CallToolResult, ToolOutput, error) {
		result, err := svc.Generate(ctx, principal, proxy.Request{
			Tool:           tool,
			UserInput:      input.UserInput,
			JobDescription: input.JobDescription,
		})
		if err != nil {
			logger.LogError(err, "MCP tool call failed", "tool", tool)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: errors.PublicMessage(err)}},
			}, ToolOutput{}, nil
		}

		output := ToolOutput{
			ToolType:   result.ToolType.String(),
			Content:    result.Content,
			TokensUsed: result.TokensUsed,
			Model:      result.Model,
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Content}},
		}, output, nil
	})
}

// Run serves server over stdin/stdout until ctx is canceled or the client disconnects
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
