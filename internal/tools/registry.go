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

package tools

import (
	"context"
	"fmt"
	"sync"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
	"github.com/sashabaranov/go-openai"
)

// ToolResult is the outcome of an OpenAI tool call, ready to send back.
type ToolResult struct {
	CallID   string
	Function string
	Result   Result
	Output   string
	Error    error
}

// Message returns the tool message answering the call.
func (t *ToolResult) Message() openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    t.Output,
		Name:       t.Function,
		ToolCallID: t.CallID,
	}
}

// Registry holds the tools available to the host.
type Registry struct {
	mu              sync.RWMutex
	tools           map[string]Tool
	order           []string
	requireApproval bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Mount builds a registry with read_file, write_file and edit_file bound to settings.
func Mount(settings Settings) (*Registry, error) {
	r := NewRegistry()
	if err := r.Mount(settings); err != nil {
		return nil, err
	}
	return r, nil
}

// Mount registers the file tools bound to settings.
func (r *Registry) Mount(settings Settings) error {
	if settings.Guard == nil {
		return fmt.Errorf("mount file tools: settings have no path guard")
	}
	settings = normalizeSettings(settings)
	for _, tool := range newFileTools(settings).definitions() {
		if err := r.RegisterTool(tool); err != nil {
			return fmt.Errorf("mount file tools: %w", err)
		}
	}
	r.mu.Lock()
	r.requireApproval = r.requireApproval || settings.RequireApproval
	r.mu.Unlock()

	settings.Logger.Debug().
		Bool("unrestricted_read", settings.Guard.Roots(paths.ModeRead).Unrestricted()).
		Strs("write_roots", settings.Guard.Roots(paths.ModeWrite).Roots()).
		Bool("require_approval", settings.RequireApproval).
		Msg("mounted file tools")
	return nil
}

// RegisterTool adds a tool to the registry.
func (r *Registry) RegisterTool(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}
	if !tool.CompatibleWith(HostAPIVersion) {
		return fmt.Errorf("tool %s version %s is not compatible with host API %s", tool.Name(), tool.Version(), HostAPIVersion)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.order = append(r.order, tool.Name())
	return nil
}

// RequireApproval reports the configured approval flag. The registry does not
// act on it; hosts decide how to obtain approval.
func (r *Registry) RequireApproval() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.requireApproval
}

// GetTools returns the registered tools in registration order.
func (r *Registry) GetTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// GetToolNames returns the registered tool names in registration order.
func (r *Registry) GetToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// OpenAITools returns the registry as OpenAI tool definitions.
func (r *Registry) OpenAITools() []openai.Tool {
	tools := r.GetTools()
	defs := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}

// Execute validates args and runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (Result, error) {
	tool, ok := r.getTool(name)
	if !ok {
		return nil, NewToolNotFoundError(name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := tool.Validate(args); err != nil {
		if _, coded := apperrors.As(err); coded {
			return nil, err
		}
		return nil, NewArgumentError(name, err)
	}
	return tool.Execute(ctx, args)
}

// ExecuteOpenAIToolCall executes an OpenAI tool call payload and renders the
// outcome as the JSON content of a tool message.
func (r *Registry) ExecuteOpenAIToolCall(ctx context.Context, call openai.ToolCall) *ToolResult {
	out := &ToolResult{CallID: call.ID, Function: call.Function.Name}
	if call.Function.Name == "" {
		out.Function = "unknown_tool"
		out.Error = NewArgumentError(out.Function, fmt.Errorf("tool call missing function name"))
		out.Output = RenderError(out.Error)
		return out
	}

	args, err := parseToolArgs(call.Function.Arguments)
	if err != nil {
		out.Error = NewArgumentError(call.Function.Name, err)
		out.Output = RenderError(out.Error)
		return out
	}

	out.Result, out.Error = r.Execute(ctx, call.Function.Name, args)
	out.Output = RenderOutcome(out.Result, out.Error)
	return out
}

func (r *Registry) getTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}
