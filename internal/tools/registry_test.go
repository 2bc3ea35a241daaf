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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "fsguard/internal/errors"
	"fsguard/internal/paths"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

func mountTest(t *testing.T, settings Settings) *Registry {
	t.Helper()
	registry, err := Mount(settings)
	if err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	return registry
}

func TestMountRequiresGuard(t *testing.T) {
	if _, err := Mount(Settings{Logger: zerolog.Nop()}); err == nil {
		t.Fatal("expected error without a guard")
	}
}

func TestMountRegistersFileTools(t *testing.T) {
	settings, _ := testSettings(t, testWorkspace(t))
	settings.RequireApproval = true
	registry := mountTest(t, settings)

	names := registry.GetToolNames()
	want := []string{ToolReadFile, ToolWriteFile, ToolEditFile}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, names)
	}
	if !registry.RequireApproval() {
		t.Fatal("expected approval flag to be passed through")
	}

	defs := registry.OpenAITools()
	if len(defs) != 3 {
		t.Fatalf("expected 3 tool definitions, got %d", len(defs))
	}
	for _, def := range defs {
		if def.Type != openai.ToolTypeFunction || def.Function == nil || def.Function.Parameters == nil {
			t.Fatalf("incomplete definition %+v", def)
		}
	}

	if err := registry.Mount(settings); err == nil {
		t.Fatal("expected duplicate mount to fail")
	}
}

func TestRegistryWriteReadEditFlow(t *testing.T) {
	dir := testWorkspace(t)
	settings, sink := testSettings(t, dir)
	registry := mountTest(t, settings)
	ctx := context.Background()
	path := filepath.Join(dir, "docs", "a.txt")

	if _, err := registry.Execute(ctx, ToolWriteFile, map[string]interface{}{
		"file_path": path,
		"content":   "one\ntwo\nthree\n",
	}); err != nil {
		t.Fatalf("write_file failed: %v", err)
	}

	result, err := registry.Execute(ctx, ToolEditFile, map[string]interface{}{
		"file_path":  path,
		"old_string": "two",
		"new_string": "2",
	})
	if err != nil {
		t.Fatalf("edit_file failed: %v", err)
	}
	if edit := result.(*EditResult); edit.ReplacementsMade != 1 {
		t.Fatalf("unexpected edit result %+v", edit)
	}

	result, err = registry.Execute(ctx, ToolReadFile, map[string]interface{}{
		"file_path": path,
		"offset":    2,
		"limit":     1,
	})
	if err != nil {
		t.Fatalf("read_file failed: %v", err)
	}
	if text := result.(*TextResult); text.Content != "     2\t2" {
		t.Fatalf("unexpected read content %q", text.Content)
	}

	events := sink.snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 artifact events, got %d", len(events))
	}
	wantNames := []string{EventArtifactWrite, EventArtifactWrite, EventArtifactRead}
	for i, event := range events {
		if event.Name != wantNames[i] || event.Path != path || event.ID == "" {
			t.Fatalf("unexpected event %d: %+v", i, event)
		}
	}
}

func TestRegistryDeniesSiblingPrefix(t *testing.T) {
	base := testWorkspace(t)
	project := filepath.Join(base, "project")
	sibling := filepath.Join(base, "project2")
	for _, dir := range []string{project, sibling} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}
	settings, sink := testSettings(t, project)
	registry := mountTest(t, settings)

	_, err := registry.Execute(context.Background(), ToolWriteFile, map[string]interface{}{
		"file_path": filepath.Join(sibling, "evil.txt"),
		"content":   "x",
	})
	if apperrors.CodeOf(err) != apperrors.CodePathDenied {
		t.Fatalf("expected path_denied, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(sibling, "evil.txt")); !os.IsNotExist(statErr) {
		t.Fatal("denied write must not create the file")
	}
	if len(sink.snapshot()) != 0 {
		t.Fatal("no event should be emitted for a denied call")
	}
}

func TestRegistryDeniesSystemFileUnderDefaultRoot(t *testing.T) {
	dir := testWorkspace(t)
	write, err := paths.NewRootSet([]string{"."}, dir)
	if err != nil {
		t.Fatalf("failed to build roots: %v", err)
	}
	registry := mountTest(t, Settings{
		Guard:  paths.NewGuard(paths.Unrestricted(), write, paths.DenyRules{}),
		Logger: zerolog.Nop(),
	})

	for _, tool := range []string{ToolWriteFile, ToolEditFile} {
		_, err := registry.Execute(context.Background(), tool, map[string]interface{}{
			"file_path":  "/etc/passwd",
			"content":    "x",
			"old_string": "root",
			"new_string": "toor",
		})
		if apperrors.CodeOf(err) != apperrors.CodePathDenied {
			t.Fatalf("%s: expected path_denied, got %v", tool, err)
		}
	}
}

func TestRegistryArgumentErrors(t *testing.T) {
	dir := testWorkspace(t)
	settings, _ := testSettings(t, dir)
	registry := mountTest(t, settings)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"missing path", ToolReadFile, map[string]interface{}{}},
		{"zero offset", ToolReadFile, map[string]interface{}{"file_path": filepath.Join(dir, "a"), "offset": 0}},
		{"missing content", ToolWriteFile, map[string]interface{}{"file_path": filepath.Join(dir, "a")}},
		{"missing new_string", ToolEditFile, map[string]interface{}{"file_path": filepath.Join(dir, "a"), "old_string": "x"}},
		{"wrong type", ToolEditFile, map[string]interface{}{"file_path": filepath.Join(dir, "a"), "old_string": "x", "new_string": "y", "replace_all": "yes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Execute(ctx, tt.tool, tt.args)
			if apperrors.CodeOf(err) != apperrors.CodeInvalidArgument {
				t.Fatalf("expected invalid_argument, got %v", err)
			}
		})
	}
}

func TestRegistryRelativePathRejected(t *testing.T) {
	settings, _ := testSettings(t, testWorkspace(t))
	registry := mountTest(t, settings)
	_, err := registry.Execute(context.Background(), ToolReadFile, map[string]interface{}{"file_path": "notes.txt"})
	if apperrors.CodeOf(err) != apperrors.CodeInvalidPath {
		t.Fatalf("expected invalid_path, got %v", err)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Execute(context.Background(), "rm", nil)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestExecuteOpenAIToolCallRendersPayloads(t *testing.T) {
	dir := testWorkspace(t)
	settings, _ := testSettings(t, dir)
	registry := mountTest(t, settings)
	path := filepath.Join(dir, "dup.txt")
	if err := os.WriteFile(path, []byte("a a"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	argsJSON, _ := json.Marshal(map[string]interface{}{
		"file_path":  path,
		"old_string": "a",
		"new_string": "b",
	})
	res := registry.ExecuteOpenAIToolCall(context.Background(), openai.ToolCall{
		ID:       "call_1",
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: ToolEditFile, Arguments: string(argsJSON)},
	})
	if res.Error == nil {
		t.Fatal("expected ambiguous edit to fail")
	}
	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Occurrences int    `json:"occurrences"`
			Path        string `json:"path"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(res.Output), &payload); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, res.Output)
	}
	if payload.Error.Code != string(apperrors.CodeAmbiguousMatch) || payload.Error.Occurrences != 2 || payload.Error.Path != path {
		t.Fatalf("unexpected error payload %s", res.Output)
	}

	msg := res.Message()
	if msg.Role != openai.ChatMessageRoleTool || msg.ToolCallID != "call_1" {
		t.Fatalf("unexpected tool message %+v", msg)
	}

	res = registry.ExecuteOpenAIToolCall(context.Background(), openai.ToolCall{
		ID:       "call_2",
		Function: openai.FunctionCall{Name: ToolReadFile, Arguments: `{"file_path":` + string(mustJSON(t, path)) + `}`},
	})
	if res.Error != nil {
		t.Fatalf("read failed: %v", res.Error)
	}
	var text TextResult
	if err := json.Unmarshal([]byte(res.Output), &text); err != nil || text.TotalLines != 1 {
		t.Fatalf("unexpected read payload %s (%v)", res.Output, err)
	}

	res = registry.ExecuteOpenAIToolCall(context.Background(), openai.ToolCall{
		Function: openai.FunctionCall{Name: ToolReadFile, Arguments: "{not json"},
	})
	if apperrors.CodeOf(res.Error) != apperrors.CodeInvalidArgument {
		t.Fatalf("expected invalid_argument for malformed JSON, got %v", res.Error)
	}
}

func TestReadEventReportsFileSize(t *testing.T) {
	dir := testWorkspace(t)
	settings, sink := testSettings(t, dir)
	registry := mountTest(t, settings)
	path := filepath.Join(dir, "big.txt")
	content := strings.Repeat("line of text\n", 50)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	result, err := registry.Execute(context.Background(), ToolReadFile, map[string]interface{}{
		"file_path": path,
		"limit":     2,
	})
	if err != nil {
		t.Fatalf("read_file failed: %v", err)
	}
	if text := result.(*TextResult); len(text.Content) == len(content) {
		t.Fatalf("expected a partial rendering, got %d bytes", len(text.Content))
	}

	events := sink.snapshot()
	if len(events) != 1 || events[0].Name != EventArtifactRead {
		t.Fatalf("expected one read event, got %+v", events)
	}
	if events[0].Bytes != int64(len(content)) {
		t.Fatalf("expected %d bytes, got %d", len(content), events[0].Bytes)
	}
}

func TestValidateToolCall(t *testing.T) {
	settings, _ := testSettings(t, testWorkspace(t))
	registry := mountTest(t, settings)
	if err := registry.ValidateToolCall(ToolWriteFile, `{"file_path":"/tmp/x","content":"y"}`); err != nil {
		t.Fatalf("expected valid call, got %v", err)
	}
	if err := registry.ValidateToolCall(ToolWriteFile, `{"content":"y"}`); err == nil {
		t.Fatal("expected missing path to fail validation")
	}
	if err := registry.ValidateToolCall("nope", `{}`); err == nil {
		t.Fatal("expected unknown tool to fail validation")
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return raw
}
