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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/carverauto/chemvis/pkg/logger"
)

var (
	errInvalidDuration = errors.New("invalid duration")
	errMissingBaseURL  = errors.New("base_url is required")
	errInvalidScheme   = errors.New("unsupported URL scheme")
	errMissingListen   = errors.New("listen_addr is required")
	errUnknownDriver   = errors.New("unknown database driver")
	errMissingDSN      = errors.New("database dsn is required")
	errMissingUsers    = errors.New("at least one user is required")
	errMissingNATSURL  = errors.New("nats url is required when nats is enabled")
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000/api"
	DefaultWebsocketURL   = "ws://127.0.0.1:8000/ws/updates/"
	DefaultRequestTimeout = 1500 * time.Millisecond
	DefaultReconnectDelay = 5 * time.Second
	DefaultListenAddr     = ":8000"
	DefaultNATSSubject    = "chemvis.equipment.updated"
	DefaultUsername       = "admin"
	DefaultPassword       = "password123"

	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalText lets TOML, YAML and environment overrides use "1.5s" style values.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidDuration, err)
	}

	*d = Duration(dur)

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ClientConfig configures the dashboard client.
type ClientConfig struct {
	BaseURL        string         `json:"base_url" yaml:"base_url" toml:"base_url"`
	WebsocketURL   string         `json:"websocket_url" yaml:"websocket_url" toml:"websocket_url"`
	Username       string         `json:"username" yaml:"username" toml:"username"`
	Password       string         `json:"password" yaml:"password" toml:"password" sensitive:"true"`
	RequestTimeout Duration       `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	ReconnectDelay Duration       `json:"reconnect_delay" yaml:"reconnect_delay" toml:"reconnect_delay"`
	ReportDir      string         `json:"report_dir" yaml:"report_dir" toml:"report_dir"`
	SessionFile    string         `json:"session_file" yaml:"session_file" toml:"session_file"`
	Users          []User         `json:"users" yaml:"users" toml:"users"`
	Logging        *logger.Config `json:"logging" yaml:"logging" toml:"logging"`
}

// ApplyDefaults fills unset fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if c.WebsocketURL == "" {
		c.WebsocketURL = DefaultWebsocketURL
	}

	if c.Username == "" {
		c.Username = DefaultUsername
	}

	if c.Password == "" {
		c.Password = DefaultPassword
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}

	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = Duration(DefaultReconnectDelay)
	}

	if c.ReportDir == "" {
		c.ReportDir = "."
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}
}

func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return errMissingBaseURL
	}

	if err := checkScheme(c.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}

	if c.WebsocketURL != "" {
		if err := checkScheme(c.WebsocketURL, "ws", "wss"); err != nil {
			return fmt.Errorf("websocket_url: %w", err)
		}
	}

	return nil
}

// DatabaseConfig selects the server's store.
type DatabaseConfig struct {
	Driver   string `json:"driver" yaml:"driver" toml:"driver"`
	DSN      string `json:"dsn" yaml:"dsn" toml:"dsn" sensitive:"true"`
	MaxConns int32  `json:"max_conns" yaml:"max_conns" toml:"max_conns"`
}

type NATSConfig struct {
	Enabled bool       `json:"enabled" yaml:"enabled" toml:"enabled"`
	URL     string     `json:"url" yaml:"url" toml:"url"`
	Subject string     `json:"subject" yaml:"subject" toml:"subject"`
	TLS     *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty" toml:"tls,omitempty"`
}

// TLSConfig holds mTLS material for the NATS connection.
type TLSConfig struct {
	CAFile     string `json:"ca_file" yaml:"ca_file" toml:"ca_file"`
	CertFile   string `json:"cert_file" yaml:"cert_file" toml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file" toml:"key_file" sensitive:"true"`
	ServerName string `json:"server_name" yaml:"server_name" toml:"server_name"`
}

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials" toml:"allow_credentials"`
}

// ServerConfig configures the backend API server.
type ServerConfig struct {
	ListenAddr string         `json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	Database   DatabaseConfig `json:"database" yaml:"database" toml:"database"`
	Users      []User         `json:"users" yaml:"users" toml:"users"`
	NATS       NATSConfig     `json:"nats" yaml:"nats" toml:"nats"`
	CORS       CORSConfig     `json:"cors" yaml:"cors" toml:"cors"`
	LoadSample bool           `json:"load_sample" yaml:"load_sample" toml:"load_sample"`
	Logging    *logger.Config `json:"logging" yaml:"logging" toml:"logging"`
}

func (c *ServerConfig) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}

	if c.NATS.Subject == "" {
		c.NATS.Subject = DefaultNATSSubject
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}
}

func (c *ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return errMissingListen
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w for driver %s", errMissingDSN, c.Database.Driver)
		}
	default:
		return fmt.Errorf("%w: %s", errUnknownDriver, c.Database.Driver)
	}

	if len(c.Users) == 0 {
		return errMissingUsers
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errMissingNATSURL
	}

	return nil
}

func checkScheme(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", errInvalidScheme, u.Scheme)
}
