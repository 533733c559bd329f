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

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carverauto/chemvis/pkg/auth"
	"github.com/carverauto/chemvis/pkg/config"
	"github.com/carverauto/chemvis/pkg/dashboard"
	"github.com/carverauto/chemvis/pkg/gateway"
	"github.com/carverauto/chemvis/pkg/ingest"
	"github.com/carverauto/chemvis/pkg/lifecycle"
	"github.com/carverauto/chemvis/pkg/listener"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

// Runtime is the wired client: gateway, controller, listener and auth gate.
type Runtime struct {
	Config     *models.ClientConfig
	Logger     logger.Logger
	Client     *gateway.Client
	Controller *dashboard.Controller
	Listener   *listener.Listener
	Auth       auth.Provider
	Sessions   *auth.SessionStore
}

// LoadClientConfig reads the client config from path, the environment and defaults.
func LoadClientConfig(ctx context.Context, path string) (*models.ClientConfig, error) {
	var cfg models.ClientConfig

	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// tuiLogConfig sends terminal-bound logs to a file so they do not corrupt
// the alternate screen.
func tuiLogConfig(cfg *logger.Config) *logger.Config {
	out := *cfg

	switch out.Output {
	case "", "stdout", "stderr":
		out.Output = filepath.Join(os.TempDir(), "chemvis.log")
	}

	return &out
}

// NewRuntime wires every client component from cfg.
func NewRuntime(cfg *models.ClientConfig, log logger.Logger, opts ...gateway.Option) (*Runtime, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("auth provider: %w", err)
	}

	sessionPath := cfg.SessionFile
	if sessionPath == "" {
		if sessionPath, err = auth.DefaultSessionPath(); err != nil {
			return nil, fmt.Errorf("session path: %w", err)
		}
	}

	demo := ingest.NewDemoAggregator(ingest.WithLogger(log))
	client := gateway.NewFromConfig(cfg, demo, append([]gateway.Option{gateway.WithLogger(log)}, opts...)...)
	controller := dashboard.NewController(client, log)

	l := listener.New(cfg.WebsocketURL, client.Modes(),
		func(ctx context.Context) { controller.Refresh(ctx) },
		listener.WithReconnectDelay(time.Duration(cfg.ReconnectDelay)),
		listener.WithCredentials(cfg.Username, cfg.Password),
		listener.WithLogger(log),
	)

	return &Runtime{
		Config:     cfg,
		Logger:     log,
		Client:     client,
		Controller: controller,
		Listener:   l,
		Auth:       provider,
		Sessions:   auth.NewSessionStore(sessionPath),
	}, nil
}

func newProvider(cfg *models.ClientConfig) (auth.Provider, error) {
	if len(cfg.Users) > 0 {
		return auth.NewLocalProvider(cfg.Users)
	}

	return auth.NewSingleUserProvider(cfg.Username, cfg.Password)
}

// Bootstrap loads config, builds the component logger and the runtime.
func Bootstrap(ctx context.Context, cmd *CmdConfig) (*Runtime, error) {
	cfg, err := LoadClientConfig(ctx, cmd.ConfigFile)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if cmd.SubCmd == defaultSubCmd {
		logCfg = tuiLogConfig(logCfg)
	}

	log, err := lifecycle.CreateComponentLogger("chemvis", logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return NewRuntime(cfg, log)
}

// requireSession returns the stored session or errNotLoggedIn.
func (rt *Runtime) requireSession() (*models.Session, error) {
	sess, err := rt.Sessions.Load()
	if err != nil {
		return nil, fmt.Errorf("%w (%w)", errNotLoggedIn, err)
	}

	return sess, nil
}
