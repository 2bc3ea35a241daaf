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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fsguard/internal/paths"
	"fsguard/internal/tools"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvWorkingDir      = "FSGUARD_WORKING_DIR"
	EnvRequireApproval = "FSGUARD_REQUIRE_APPROVAL"
)

// Config represents the mount-time configuration of the file tools.
type Config struct {
	// AllowedReadPaths nil means reads are unrestricted; an empty list denies all reads.
	AllowedReadPaths  []string          `json:"allowed_read_paths" yaml:"allowed_read_paths"`
	AllowedWritePaths []string          `json:"allowed_write_paths" yaml:"allowed_write_paths"`
	DeniedWritePaths  []string          `json:"denied_write_paths,omitempty" yaml:"denied_write_paths,omitempty"`
	RequireApproval   bool              `json:"require_approval" yaml:"require_approval"`
	WorkingDir        string            `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	ReadLimits        ReadLimits        `json:"read_limits" yaml:"read_limits"`
	ImageLimits       ImageLimits       `json:"image_limits" yaml:"image_limits"`
	Mentions          map[string]string `json:"mentions,omitempty" yaml:"mentions,omitempty"`
}

// ReadLimits bounds text pagination.
type ReadLimits struct {
	DefaultLineLimit int `json:"default_line_limit,omitempty" yaml:"default_line_limit,omitempty"`
	MaxLineLength    int `json:"max_line_length,omitempty" yaml:"max_line_length,omitempty"`
}

// ImageLimits sets the image warning threshold and hard cap in bytes.
type ImageLimits struct {
	WarnBytes int64 `json:"warn_bytes,omitempty" yaml:"warn_bytes,omitempty"`
	MaxBytes  int64 `json:"max_bytes,omitempty" yaml:"max_bytes,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	limits := tools.DefaultLimits()
	return &Config{
		AllowedWritePaths: []string{"."},
		ReadLimits: ReadLimits{
			DefaultLineLimit: limits.DefaultLineLimit,
			MaxLineLength:    limits.MaxLineLength,
		},
		ImageLimits: ImageLimits{
			WarnBytes: limits.ImageWarnBytes,
			MaxBytes:  limits.ImageMaxBytes,
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file (chosen by extension),
// applies env overrides, and validates the result. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if isYAMLPath(path) {
				data, err = yamlToJSON(data)
				if err != nil {
					return nil, fmt.Errorf("invalid YAML config %s: %w", path, err)
				}
			}
			if err := decodeInto(config, data); err != nil {
				return nil, fmt.Errorf("invalid config %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// FromMap builds a config from a host-supplied mount map, using the same
// validation as config files. Env overrides are not applied.
func FromMap(raw map[string]interface{}) (*Config, error) {
	config := DefaultConfig()
	if raw == nil {
		return config, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid config map: %w", err)
	}
	if err := decodeInto(config, data); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeInto(config *Config, data []byte) error {
	normalized, err := normalizeConfigJSON(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, config)
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return json.Marshal(raw)
}

func applyEnvOverrides(config *Config) error {
	if val := os.Getenv(EnvWorkingDir); val != "" {
		config.WorkingDir = val
	}
	if val := os.Getenv(EnvRequireApproval); val != "" {
		approval, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s must be a boolean, got %q", EnvRequireApproval, val)
		}
		config.RequireApproval = approval
	}
	return nil
}

// Limits returns the tool limits described by the config.
func (c *Config) Limits() tools.Limits {
	return tools.Limits{
		DefaultLineLimit: c.ReadLimits.DefaultLineLimit,
		MaxLineLength:    c.ReadLimits.MaxLineLength,
		ImageWarnBytes:   c.ImageLimits.WarnBytes,
		ImageMaxBytes:    c.ImageLimits.MaxBytes,
	}
}

// Guard canonicalizes the configured roots against the working directory.
func (c *Config) Guard() (*paths.Guard, string, error) {
	workdir, err := paths.ResolveWorkdir(c.WorkingDir)
	if err != nil {
		return nil, "", err
	}

	read := paths.Unrestricted()
	if c.AllowedReadPaths != nil {
		read, err = paths.NewRootSet(c.AllowedReadPaths, workdir)
		if err != nil {
			return nil, "", fmt.Errorf("allowed_read_paths: %w", err)
		}
	}
	write, err := paths.NewRootSet(c.AllowedWritePaths, workdir)
	if err != nil {
		return nil, "", fmt.Errorf("allowed_write_paths: %w", err)
	}
	deny, err := paths.NewDenyRules(c.DeniedWritePaths, workdir)
	if err != nil {
		return nil, "", fmt.Errorf("denied_write_paths: %w", err)
	}
	return paths.NewGuard(read, write, deny), workdir, nil
}

// Settings builds the immutable tool settings for Mount.
func (c *Config) Settings(logger zerolog.Logger) (tools.Settings, error) {
	guard, workdir, err := c.Guard()
	if err != nil {
		return tools.Settings{}, err
	}
	settings := tools.Settings{
		Guard:           guard,
		Limits:          c.Limits(),
		RequireApproval: c.RequireApproval,
		Logger:          logger,
	}
	if len(c.Mentions) > 0 {
		settings.Mentions = tools.NewMapMentionResolver(c.Mentions, workdir)
	}
	return settings, nil
}

// ValidationWarning represents a non-fatal configuration issue
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings
func (c *Config) Validate() []ValidationWarning {
	var warnings []ValidationWarning

	if c.AllowedReadPaths != nil && len(c.AllowedReadPaths) == 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "allowed_read_paths",
			Message: "empty list denies every read; omit the field or set it to null for unrestricted reads",
		})
	}
	if len(c.AllowedWritePaths) == 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "allowed_write_paths",
			Message: "empty list denies every write and edit",
		})
	}

	workdir, err := paths.ResolveWorkdir(c.WorkingDir)
	if err != nil {
		warnings = append(warnings, ValidationWarning{
			Field:   "working_dir",
			Message: err.Error(),
		})
	} else {
		warnings = append(warnings, missingRootWarnings("allowed_read_paths", c.AllowedReadPaths, workdir)...)
		warnings = append(warnings, missingRootWarnings("allowed_write_paths", c.AllowedWritePaths, workdir)...)
	}

	if c.ReadLimits.DefaultLineLimit < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "read_limits.default_line_limit",
			Message: fmt.Sprintf("default_line_limit %d should be positive, using default", c.ReadLimits.DefaultLineLimit),
		})
	}
	if c.ReadLimits.MaxLineLength < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "read_limits.max_line_length",
			Message: fmt.Sprintf("max_line_length %d should be positive, using default", c.ReadLimits.MaxLineLength),
		})
	}
	if c.ImageLimits.WarnBytes > 0 && c.ImageLimits.MaxBytes > 0 && c.ImageLimits.WarnBytes > c.ImageLimits.MaxBytes {
		warnings = append(warnings, ValidationWarning{
			Field:   "image_limits.warn_bytes",
			Message: fmt.Sprintf("warn_bytes %d exceeds max_bytes %d; the cap is used as the warning threshold", c.ImageLimits.WarnBytes, c.ImageLimits.MaxBytes),
		})
	}

	for name := range c.Mentions {
		if strings.ContainsAny(name, ":@/") || name == "" {
			warnings = append(warnings, ValidationWarning{
				Field:   "mentions." + name,
				Message: fmt.Sprintf("mention name %q cannot contain ':', '@' or '/'", name),
			})
		}
	}

	return warnings
}

func missingRootWarnings(field string, entries []string, workdir string) []ValidationWarning {
	var warnings []ValidationWarning
	for _, entry := range entries {
		root, err := paths.ResolveRootEntry(entry, workdir)
		if err != nil {
			warnings = append(warnings, ValidationWarning{Field: field, Message: err.Error()})
			continue
		}
		if _, err := os.Stat(root); err != nil {
			warnings = append(warnings, ValidationWarning{
				Field:   field,
				Message: fmt.Sprintf("root %q does not exist yet", entry),
			})
		}
	}
	return warnings
}
