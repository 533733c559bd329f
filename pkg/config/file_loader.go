/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/carverauto/chemvis/pkg/logger"
	"gopkg.in/yaml.v3"
)

var errUnsupportedFormat = errors.New("unsupported config format")

// ConfigFormat identifies a config file encoding.
type ConfigFormat string

const (
	FormatJSON ConfigFormat = "json"
	FormatTOML ConfigFormat = "toml"
	FormatYAML ConfigFormat = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, filepath.Ext(path))
	}
}

// FileConfigLoader loads configuration from a local JSON, TOML or YAML file.
type FileConfigLoader struct {
	logger logger.Logger
}

// Load implements ConfigLoader by reading and decoding the file at path.
func (f *FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if err := Decode(format, data, dst); err != nil {
		return fmt.Errorf("failed to decode %s from '%s': %w", format, path, err)
	}

	if f.logger != nil {
		f.logger.Debug().Str("path", path).Str("format", string(format)).Msg("Loaded config file")
	}

	return nil
}

// Decode unmarshals data in the given format into dst.
func Decode(format ConfigFormat, data []byte, dst interface{}) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, dst)
	case FormatTOML:
		_, err := toml.Decode(string(data), dst)
		return err
	case FormatYAML:
		return yaml.Unmarshal(data, dst)
	default:
		return fmt.Errorf("%w: %s", errUnsupportedFormat, format)
	}
}
