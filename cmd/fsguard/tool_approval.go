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
	"sync"
	"time"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/tools"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/term"
)

type approvalDecision int

const (
	approvalUnknown approvalDecision = iota
	approvalYes
	approvalNo
	approvalAlways
)

// toolApprovalFunc asks the operator whether a call may run.
type toolApprovalFunc func(call openai.ToolCall) (bool, error)

type toolPromptFunc func(call openai.ToolCall) (approvalDecision, error)

func newToolApprover() toolApprovalFunc {
	return newToolApproverWithPrompt(promptToolApproval)
}

// newToolApproverWithPrompt remembers "always" answers per tool name.
func newToolApproverWithPrompt(prompt toolPromptFunc) toolApprovalFunc {
	alwaysAllowed := make(map[string]bool)
	var mu sync.RWMutex
	return func(call openai.ToolCall) (bool, error) {
		name := toolCallName(call)
		mu.RLock()
		allowed := alwaysAllowed[name]
		mu.RUnlock()
		if allowed {
			return true, nil
		}

		decision, err := prompt(call)
		if err != nil {
			return false, err
		}
		if decision == approvalAlways {
			mu.Lock()
			alwaysAllowed[name] = true
			mu.Unlock()
			return true, nil
		}
		return decision == approvalYes, nil
	}
}

// approveCall is a no-op unless the registry was mounted with require_approval.
func approveCall(registry *tools.Registry, approve toolApprovalFunc, call openai.ToolCall) error {
	if approve == nil || !registry.RequireApproval() {
		return nil
	}
	name := toolCallName(call)
	allowed, err := approve(call)
	if err != nil {
		return apperrors.Wrap(apperrors.CodePathDenied, fmt.Sprintf("approval for %s failed", name), err)
	}
	if !allowed {
		return apperrors.Wrap(apperrors.CodePathDenied, fmt.Sprintf("%s was not approved", name), tools.ErrToolDeniedByUser)
	}
	return nil
}

// gateCall rejects malformed calls before asking the operator, then asks.
func gateCall(registry *tools.Registry, approve toolApprovalFunc, call openai.ToolCall) error {
	if registry.RequireApproval() && call.Function.Name != "" {
		if err := registry.ValidateToolCall(call.Function.Name, call.Function.Arguments); err != nil {
			return err
		}
	}
	return approveCall(registry, approve, call)
}

// executeWithApproval gates a call on approval and runs it through the registry.
func executeWithApproval(ctx context.Context, logger zerolog.Logger, registry *tools.Registry, approve toolApprovalFunc, call openai.ToolCall) *tools.ToolResult {
	if err := gateCall(registry, approve, call); err != nil {
		logger.Warn().Err(err).Str("tool", toolCallName(call)).Msg("Tool call not approved")
		return &tools.ToolResult{
			CallID:   call.ID,
			Function: toolCallName(call),
			Error:    err,
			Output:   tools.RenderError(err),
		}
	}

	start := time.Now()
	result := registry.ExecuteOpenAIToolCall(ctx, call)
	event := logger.Debug()
	if result.Error != nil {
		event = logger.Info().Err(result.Error).Str("code", string(apperrors.CodeOf(result.Error)))
	}
	event.Str("tool", result.Function).
		Str("call_id", result.CallID).
		Dur("duration_ms", time.Since(start)).
		Msg("Tool call finished")
	return result
}

func promptToolApproval(call openai.ToolCall) (approvalDecision, error) {
	input := os.Stdin
	output := io.Writer(os.Stdout)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			return approvalNo, fmt.Errorf("no TTY available for tool approval")
		}
		defer tty.Close()
		input = tty
		output = tty
	}
	return readApproval(bufio.NewReader(input), output, call)
}

func readApproval(reader *bufio.Reader, output io.Writer, call openai.ToolCall) (approvalDecision, error) {
	name := toolCallName(call)
	argsDisplay := describeArgs(call.Function.Arguments)
	for {
		fmt.Fprintf(output, "Allow %s%s? (Yes/no/always): ", name, argsDisplay)
		line, err := reader.ReadString('\n')
		if err != nil {
			return approvalNo, err
		}
		decision := parseApprovalInput(line)
		switch decision {
		case approvalYes, approvalNo, approvalAlways:
			return decision, nil
		default:
			fmt.Fprintln(output, "Please enter yes, no, or always.")
		}
	}
}

// describeArgs shows the call arguments without the bulky text fields.
func describeArgs(rawArgs string) string {
	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs == "" || rawArgs == "{}" || rawArgs == "null" {
		return ""
	}
	argsMap, ok := parseArgsJSON(rawArgs)
	if !ok {
		return fmt.Sprintf(" with args %s", rawArgs)
	}
	for _, key := range []string{"content", "old_string", "new_string"} {
		if value, present := argsMap[key].(string); present {
			argsMap[key] = fmt.Sprintf("<%d bytes>", len(value))
		}
	}
	redacted, err := json.Marshal(argsMap)
	if err != nil {
		return fmt.Sprintf(" with args %s", rawArgs)
	}
	return fmt.Sprintf(" with args %s", string(redacted))
}

func parseApprovalInput(input string) approvalDecision {
	normalized := strings.TrimSpace(strings.ToLower(input))
	if normalized == "" {
		return approvalYes
	}
	switch {
	case isPrefixToken(normalized, "yes"):
		return approvalYes
	case isPrefixToken(normalized, "no"):
		return approvalNo
	case isPrefixToken(normalized, "always"):
		return approvalAlways
	default:
		return approvalUnknown
	}
}

func isPrefixToken(input, target string) bool {
	if input == "" || len(input) > len(target) {
		return false
	}
	return strings.HasPrefix(target, input)
}

func toolCallName(call openai.ToolCall) string {
	if call.Function.Name == "" {
		return "unknown_tool"
	}
	return call.Function.Name
}

func parseArgsJSON(rawArgs string) (map[string]interface{}, bool) {
	if rawArgs == "" {
		return nil, false
	}
	var argsMap map[string]interface{}
	if err := json.Unmarshal([]byte(rawArgs), &argsMap); err != nil {
		return nil, false
	}
	return argsMap, true
}
