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

package config

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaJSON returns the JSON schema for the configuration file.
func SchemaJSON() string {
	return configSchemaJSON
}

// ExampleConfigJSON returns a minimal example config derived from the schema.
func ExampleConfigJSON() string {
	return exampleConfigJSON
}

func normalizeConfigJSON(data []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	migrateLegacyConfig(raw)
	if err := validateConfigMap(raw, ""); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// migrateLegacyConfig maps the older single "allowed_paths" key onto both
// allowed_read_paths and allowed_write_paths, since it governed every access.
// An explicit new key wins over the legacy value.
func migrateLegacyConfig(raw map[string]interface{}) {
	legacy, ok := raw["allowed_paths"]
	if !ok {
		return
	}
	for _, key := range []string{"allowed_read_paths", "allowed_write_paths"} {
		if _, exists := raw[key]; !exists {
			raw[key] = legacy
		}
	}
	delete(raw, "allowed_paths")
}

func validateConfigMap(raw map[string]interface{}, prefix string) error {
	allowed := map[string]func(interface{}) error{
		"allowed_read_paths": func(v interface{}) error {
			if v == nil {
				return nil
			}
			return validateStringArray(v, prefix+"allowed_read_paths")
		},
		"allowed_write_paths": func(v interface{}) error {
			return validateStringArray(v, prefix+"allowed_write_paths")
		},
		"denied_write_paths": func(v interface{}) error {
			return validateStringArray(v, prefix+"denied_write_paths")
		},
		"require_approval": func(v interface{}) error { return validateBool(v, prefix+"require_approval") },
		"working_dir":      func(v interface{}) error { return validateString(v, prefix+"working_dir") },
		"read_limits": func(v interface{}) error {
			return validateReadLimits(v, prefix+"read_limits.")
		},
		"image_limits": func(v interface{}) error {
			return validateImageLimits(v, prefix+"image_limits.")
		},
		"mentions": func(v interface{}) error { return validateStringMap(v, prefix+"mentions") },
	}
	return validateSection(raw, allowed, prefix)
}

func validateReadLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", prefix[:len(prefix)-1])
	}
	allowed := map[string]func(interface{}) error{
		"default_line_limit": func(v interface{}) error { return validateNumber(v, prefix+"default_line_limit") },
		"max_line_length":    func(v interface{}) error { return validateNumber(v, prefix+"max_line_length") },
	}
	return validateSection(section, allowed, prefix)
}

func validateImageLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object", prefix[:len(prefix)-1])
	}
	allowed := map[string]func(interface{}) error{
		"warn_bytes": func(v interface{}) error { return validateNumber(v, prefix+"warn_bytes") },
		"max_bytes":  func(v interface{}) error { return validateNumber(v, prefix+"max_bytes") },
	}
	return validateSection(section, allowed, prefix)
}

func validateSection(section map[string]interface{}, allowed map[string]func(interface{}) error, prefix string) error {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", prefix+key)
		}
		if err := validator(section[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateString(value interface{}, name string) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	return nil
}

func validateNumber(value interface{}, name string) error {
	n, ok := value.(float64)
	if !ok {
		return fmt.Errorf("%s must be a number", name)
	}
	if n != float64(int64(n)) {
		return fmt.Errorf("%s must be an integer", name)
	}
	return nil
}

func validateBool(value interface{}, name string) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%s must be a boolean", name)
	}
	return nil
}

func validateStringArray(value interface{}, name string) error {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of strings", name)
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("%s must be an array of strings", name)
		}
	}
	return nil
}

func validateStringMap(value interface{}, name string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object of string values", name)
	}
	for key, entry := range section {
		if _, ok := entry.(string); !ok {
			return fmt.Errorf("%s.%s must be a string", name, key)
		}
	}
	return nil
}

const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "fsguard Config",
  "type": "object",
  "properties": {
    "allowed_read_paths": {
      "oneOf": [
        { "type": "null" },
        { "type": "array", "items": { "type": "string" } }
      ]
    },
    "allowed_write_paths": { "type": "array", "items": { "type": "string" }, "default": ["."] },
    "denied_write_paths": { "type": "array", "items": { "type": "string" } },
    "require_approval": { "type": "boolean", "default": false },
    "working_dir": { "type": "string" },
    "read_limits": {
      "type": "object",
      "properties": {
        "default_line_limit": { "type": "integer", "default": 2000 },
        "max_line_length": { "type": "integer", "default": 2000 }
      }
    },
    "image_limits": {
      "type": "object",
      "properties": {
        "warn_bytes": { "type": "integer", "default": 5242880 },
        "max_bytes": { "type": "integer", "default": 20971520 }
      }
    },
    "mentions": { "type": "object", "additionalProperties": { "type": "string" } }
  },
  "additionalProperties": false
}`

const exampleConfigJSON = `{
  "allowed_read_paths": null,
  "allowed_write_paths": ["."],
  "denied_write_paths": ["**/.git/**", ".env"],
  "require_approval": false,
  "read_limits": {
    "default_line_limit": 2000,
    "max_line_length": 2000
  },
  "image_limits": {
    "warn_bytes": 5242880,
    "max_bytes": 20971520
  },
  "mentions": {
    "docs": "docs"
  }
}`
