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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidateFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "json",
			file: "client.json",
			body: `{"base_url":"http://backend:8000/api","request_timeout":"2s","users":[{"username":"ops","password_hash":"x"}]}`,
		},
		{
			name: "toml",
			file: "client.toml",
			body: "base_url = \"http://backend:8000/api\"\nrequest_timeout = \"2s\"\n\n[[users]]\nusername = \"ops\"\npassword_hash = \"x\"\n",
		},
		{
			name: "yaml",
			file: "client.yml",
			body: "base_url: http://backend:8000/api\nrequest_timeout: 2s\nusers:\n  - username: ops\n    password_hash: x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_SOURCE", "")

			var cfg models.ClientConfig

			err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), writeFile(t, tt.file, tt.body), &cfg)
			require.NoError(t, err)

			assert.Equal(t, "http://backend:8000/api", cfg.BaseURL)
			assert.Equal(t, 2*time.Second, time.Duration(cfg.RequestTimeout))
			assert.Equal(t, models.Duration(models.DefaultReconnectDelay), cfg.ReconnectDelay)
			require.Len(t, cfg.Users, 1)
			assert.Equal(t, "ops", cfg.Users[0].Username)
		})
	}
}

func TestLoadAndValidateEnvOverlay(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")
	t.Setenv("CHEMVIS_BASE_URL", "https://override/api")
	t.Setenv("CHEMVIS_RECONNECT_DELAY", "750ms")
	t.Setenv("CHEMVIS_LOGGING_LEVEL", "debug")
	t.Setenv("CHEMVIS_DATABASE_DSN", "ignored")

	var cfg models.ClientConfig

	path := writeFile(t, "client.json", `{"base_url":"http://file/api"}`)
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "https://override/api", cfg.BaseURL)
	assert.Equal(t, 750*time.Millisecond, time.Duration(cfg.ReconnectDelay))
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadAndValidateEnvOnlyServer(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CHEMVIS_CONFIG_JSON", "")
	t.Setenv("CHEMVIS_LISTEN_ADDR", ":9000")
	t.Setenv("CHEMVIS_DATABASE_DRIVER", "sqlite")
	t.Setenv("CHEMVIS_DATABASE_DSN", "file:test.db")
	t.Setenv("CHEMVIS_USERS", `[{"username":"admin","password_hash":"h"}]`)
	t.Setenv("CHEMVIS_CORS_ALLOWED_ORIGINS", "http://a, http://b")

	var cfg models.ServerConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, models.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, models.DefaultNATSSubject, cfg.NATS.Subject)
	require.NotNil(t, cfg.Logging)
}

func TestLoadAndValidateErrors(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	var cfg models.ServerConfig

	c := NewConfig(nil)

	err := c.LoadAndValidate(context.Background(), writeFile(t, "server.ini", "x"), &cfg)
	require.ErrorIs(t, err, errUnsupportedFormat)

	err = c.LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &cfg)
	require.Error(t, err)

	err = c.LoadAndValidate(context.Background(), writeFile(t, "server.json", `{"listen_addr":":1"}`), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	t.Setenv("CONFIG_SOURCE", "etcd")
	err = c.LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvOverlayRejectsNonPointer(t *testing.T) {
	l := NewEnvConfigLoader(logger.NewTestLogger(), DefaultEnvPrefix)

	require.ErrorIs(t, l.Overlay(models.ClientConfig{}), ErrDstMustBeNonNilPointer)

	s := "x"
	require.ErrorIs(t, l.Overlay(&s), ErrDstMustBePointerToStruct)
}

func TestRedact(t *testing.T) {
	cfg := models.ServerConfig{
		Database: models.DatabaseConfig{Driver: "postgres", DSN: "postgres://u:p@h/db"},
		Users:    []models.User{{Username: "admin", PasswordHash: "$2a$"}},
	}

	out := Redact(&cfg)

	db, ok := out["database"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "*****", db["dsn"])
	assert.Equal(t, "postgres", db["driver"])

	users, ok := out["users"].([]interface{})
	require.True(t, ok)
	require.Len(t, users, 1)
	assert.Equal(t, "*****", users[0].(map[string]interface{})["password_hash"])
	assert.Nil(t, out["logging"])
}
