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

package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	err := Init(&Config{Level: "warn", Output: "discard"})
	require.NoError(t, err)

	assert.Equal(t, zerolog.WarnLevel, GetLogger().GetLevel())

	err = Init(&Config{Debug: true, Level: "error", Output: "discard"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInitInvalidLevel(t *testing.T) {
	err := Init(&Config{Level: "loud", Output: "discard"})
	require.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chemvis.log")

	l, err := New(&Config{Level: "info", Output: path})
	require.NoError(t, err)

	l.Info().Str("resource", "summary").Msg("served live")
	l.Debug().Msg("dropped")

	assert.FileExists(t, path)
}

func TestWithComponentField(t *testing.T) {
	var buf bytes.Buffer

	l := FromZerolog(zerolog.New(&buf))
	sub := l.WithComponent("gateway")
	sub.Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "gateway", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("CHEMVIS_LOG_LEVEL", "")
	t.Setenv("CHEMVIS_LOG_OUTPUT", "")
	t.Setenv("CHEMVIS_DEBUG", "yes")

	config := DefaultConfig()
	assert.Equal(t, "info", config.Level)
	assert.True(t, config.Debug)
	assert.Equal(t, "stdout", config.Output)
}

func TestDefaultConfigIgnoresUnprefixedEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DEBUG", "true")
	t.Setenv("CHEMVIS_LOG_LEVEL", "")
	t.Setenv("CHEMVIS_DEBUG", "")
	t.Setenv("CHEMVIS_LOG_OUTPUT", "stderr")

	config := DefaultConfig()
	assert.Equal(t, "info", config.Level)
	assert.False(t, config.Debug)
	assert.Equal(t, "stderr", config.Output)
}

func TestTestLoggerIsSilent(t *testing.T) {
	l := NewTestLogger()
	l.Info().Msg("nothing")
	l.SetDebug(true)
	assert.Equal(t, zerolog.Disabled, l.WithComponent("x").GetLevel())
}
