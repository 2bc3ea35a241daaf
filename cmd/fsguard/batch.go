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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"fsguard/internal/tools"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// maxBatchLine bounds one JSON tool call; write_file content travels inline.
const maxBatchLine = 32 * 1024 * 1024

func runBatchMode(logger zerolog.Logger, registry *tools.Registry) {
	ctx, stop := signalContext()
	defer stop()
	if err := runBatch(ctx, logger, registry, newToolApprover(), os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("Batch mode failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runBatch reads one OpenAI tool call per line and writes one tool message per line.
func runBatch(ctx context.Context, logger zerolog.Logger, registry *tools.Registry, approve toolApprovalFunc, in io.Reader, out io.Writer) error {
	logger.Debug().Msg("Running in batch mode")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBatchLine)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var result *tools.ToolResult
		var call openai.ToolCall
		if err := json.Unmarshal([]byte(line), &call); err != nil {
			logger.Warn().Err(err).Msg("Malformed tool call")
			result = &tools.ToolResult{Function: "unknown_tool"}
			result.Error = tools.NewArgumentError(result.Function, fmt.Errorf("malformed tool call: %v", err))
			result.Output = tools.RenderError(result.Error)
		} else {
			result = executeWithApproval(ctx, logger, registry, approve, call)
		}

		if err := encoder.Encode(result.Message()); err != nil {
			return fmt.Errorf("failed to write tool result: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}
