// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"fsguard/internal/tools"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

func runMCPMode(logger zerolog.Logger, registry *tools.Registry) {
	logger.Debug().Msg("Serving file tools over MCP stdio")
	mcpServer, err := newMCPServer(logger, registry, newToolApprover())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build MCP server")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server stopped")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newMCPServer exposes every registered tool with its generated JSON schema.
func newMCPServer(logger zerolog.Logger, registry *tools.Registry, approve toolApprovalFunc) (*server.MCPServer, error) {
	mcpServer := server.NewMCPServer("fsguard", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, tool := range registry.GetTools() {
		schema, err := json.Marshal(tool.Parameters())
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema for %s: %w", tool.Name(), err)
		}
		mcpServer.AddTool(
			mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema),
			mcpToolHandler(logger, registry, approve, tool.Name()),
		)
	}
	return mcpServer, nil
}

func mcpToolHandler(logger zerolog.Logger, registry *tools.Registry, approve toolApprovalFunc, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		rawArgs, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(tools.RenderError(tools.NewArgumentError(name, err))), nil
		}
		call := openai.ToolCall{
			ID:       uuid.NewString(),
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: string(rawArgs)},
		}
		if err := gateCall(registry, approve, call); err != nil {
			logger.Warn().Err(err).Str("tool", name).Msg("Tool call not approved")
			return mcp.NewToolResultError(tools.RenderError(err)), nil
		}

		result, err := registry.Execute(ctx, name, args)
		if err != nil {
			logger.Info().Err(err).Str("tool", name).Msg("Tool call failed")
			return mcp.NewToolResultError(tools.RenderError(err)), nil
		}
		return mcpResult(result)
	}
}

// mcpResult maps a tool result onto MCP content; images travel as image content.
func mcpResult(result tools.Result) (*mcp.CallToolResult, error) {
	if image, ok := result.(*tools.ImageResult); ok {
		summary := fmt.Sprintf("%s (%s)", image.FilePath, humanize.IBytes(uint64(image.SizeBytes)))
		if image.Warning != "" {
			summary += "\nwarning: " + image.Warning
		}
		return mcp.NewToolResultImage(summary, image.Source.Data, image.Source.MediaType), nil
	}
	text, err := tools.Render(result)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(text), nil
}
