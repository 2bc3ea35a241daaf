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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fsguard/internal/tools"
	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const replUsage = `Usage:
  <tool> <json arguments>   run a tool, e.g. read_file {"file_path":"/tmp/a.txt"}
  /tools                    list the mounted tools
  /schema <tool>            print the argument schema of a tool
  /help                     show this help
  /quit                     exit`

func runREPLMode(logger zerolog.Logger, registry *tools.Registry) {
	logger.Debug().Msg("Running in interactive mode")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "fsguard> ",
		AutoComplete:        toolCompleter(registry),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: filterInputRune,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize readline")
	}
	defer rl.Close()

	fmt.Println("fsguard by Dyne.org")
	fmt.Printf("Tools: %s\n", strings.Join(registry.GetToolNames(), ", "))
	fmt.Println("Type /help for usage, Ctrl+D or /quit to exit")
	fmt.Println()

	repl := &replSession{
		logger:   logger,
		registry: registry,
		approve:  newToolApprover(),
		out:      rl.Stdout(),
	}

	for {
		line, err := rl.Readline()
		switch classifyReadlineError(line, err) {
		case readlineContinue:
			continue
		case readlineExit:
			logger.Info().Msg("Session ended")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("Readline failed")
			return
		}
		if repl.handleLine(line) {
			logger.Info().Msg("Session ended")
			return
		}
	}
}

type replSession struct {
	logger   zerolog.Logger
	registry *tools.Registry
	approve  toolApprovalFunc
	out      io.Writer
	canceler operationCanceler
}

// handleLine runs one REPL line and reports whether the session should end.
func (s *replSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, "/") {
		return s.handleCommand(line)
	}

	call, err := parseREPLCall(line)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.canceler.Set(cancel)
	stop := watchInterrupts(&s.canceler)
	result := executeWithApproval(ctx, s.logger, s.registry, s.approve, call)
	stop()
	s.canceler.Clear()
	cancel()

	fmt.Fprintln(s.out, formatREPLResult(result))
	return false
}

func (s *replSession) handleCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(s.out, replUsage)
	case "/tools":
		for _, tool := range s.registry.GetTools() {
			summary, _, _ := strings.Cut(tool.Description(), "\n")
			fmt.Fprintf(s.out, "  %-12s %s\n", tool.Name(), summary)
		}
	case "/schema":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "Usage: /schema <tool>")
			return false
		}
		s.printSchema(fields[1])
	default:
		fmt.Fprintf(s.out, "Unknown command %s. Type /help for usage.\n", fields[0])
	}
	return false
}

func (s *replSession) printSchema(name string) {
	for _, tool := range s.registry.GetTools() {
		if tool.Name() != name {
			continue
		}
		data, err := json.MarshalIndent(tool.Parameters(), "", "  ")
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(s.out, string(data))
		return
	}
	fmt.Fprintf(s.out, "Unknown tool %s\n", name)
}

// parseREPLCall turns `<tool> <json>` into an OpenAI tool call.
func parseREPLCall(line string) (openai.ToolCall, error) {
	name, rawArgs, _ := strings.Cut(strings.TrimSpace(line), " ")
	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs == "" {
		rawArgs = "{}"
	}
	if !json.Valid([]byte(rawArgs)) {
		return openai.ToolCall{}, fmt.Errorf("arguments for %s are not valid JSON", name)
	}
	return openai.ToolCall{
		ID:   uuid.NewString(),
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      name,
			Arguments: rawArgs,
		},
	}, nil
}

// formatREPLResult prints text pages and image summaries directly and other
// outcomes as indented JSON.
func formatREPLResult(result *tools.ToolResult) string {
	switch r := result.Result.(type) {
	case *tools.ImageResult:
		summary := fmt.Sprintf("image %s %s (%s)", r.Source.MediaType, r.FilePath, humanize.IBytes(uint64(r.SizeBytes)))
		if r.Warning != "" {
			summary += "\nwarning: " + r.Warning
		}
		return summary
	case *tools.TextResult:
		header := fmt.Sprintf("%s: lines %d-%d of %d", r.FilePath, r.Offset, r.Offset+r.LinesRead-1, r.TotalLines)
		if r.LinesRead == 0 {
			header = fmt.Sprintf("%s: no lines at offset %d of %d", r.FilePath, r.Offset, r.TotalLines)
		}
		if r.Warning != "" {
			header += "\nwarning: " + r.Warning
		}
		return header + "\n" + strings.TrimSuffix(r.Content, "\n")
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(result.Output), "", "  "); err != nil {
		return result.Output
	}
	return pretty.String()
}

func toolCompleter(registry *tools.Registry) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("/help"),
		readline.PcItem("/tools"),
		readline.PcItem("/quit"),
	}
	schemaItems := make([]readline.PrefixCompleterInterface, 0, len(registry.GetToolNames()))
	for _, name := range registry.GetToolNames() {
		items = append(items, readline.PcItem(name))
		schemaItems = append(schemaItems, readline.PcItem(name))
	}
	items = append(items, readline.PcItem("/schema", schemaItems...))
	return readline.NewPrefixCompleter(items...)
}

