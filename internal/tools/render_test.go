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
	"encoding/json"
	"errors"
	"testing"

	apperrors "fsguard/internal/errors"
)

func TestRenderImageWireShape(t *testing.T) {
	out, err := Render(&ImageResult{
		Type:      "image",
		Source:    ImageSource{Type: "base64", MediaType: "image/png", Data: "AAAA"},
		FilePath:  "/w/a.png",
		SizeBytes: 3,
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["type"] != "image" || decoded["file_path"] != "/w/a.png" || decoded["size_bytes"] != float64(3) {
		t.Fatalf("unexpected top level %v", decoded)
	}
	source, ok := decoded["source"].(map[string]interface{})
	if !ok || source["type"] != "base64" || source["media_type"] != "image/png" || source["data"] != "AAAA" {
		t.Fatalf("unexpected source %v", decoded["source"])
	}
	if _, ok := decoded["warning"]; ok {
		t.Fatal("empty warning should be omitted")
	}
}

func TestRenderErrorPayload(t *testing.T) {
	err := apperrors.New(apperrors.CodePathDenied, "Access denied").WithPath("/etc/passwd").WithMode("write")
	var decoded struct {
		Error map[string]interface{} `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(RenderError(err)), &decoded); jsonErr != nil {
		t.Fatalf("invalid JSON: %v", jsonErr)
	}
	if decoded.Error["code"] != "path_denied" || decoded.Error["path"] != "/etc/passwd" || decoded.Error["mode"] != "write" {
		t.Fatalf("unexpected payload %v", decoded.Error)
	}
	if _, ok := decoded.Error["occurrences"]; ok {
		t.Fatal("zero occurrences should be omitted")
	}

	plain := RenderError(errors.New("boom"))
	if err := json.Unmarshal([]byte(plain), &decoded); err != nil || decoded.Error["code"] != "io_error" {
		t.Fatalf("uncoded errors should render as io_error, got %s", plain)
	}
}

func TestRenderOutcome(t *testing.T) {
	out := RenderOutcome(&WriteResult{FilePath: "/w/a", Bytes: 5}, nil)
	if out != `{"file_path":"/w/a","bytes":5}` {
		t.Fatalf("unexpected payload %s", out)
	}
	if _, err := Render(nil); err == nil {
		t.Fatal("expected error for nil result")
	}
}
