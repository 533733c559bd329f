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

// Package app wires and runs the dataset backend.
package app

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/chemvis/pkg/auth"
	"github.com/carverauto/chemvis/pkg/config"
	"github.com/carverauto/chemvis/pkg/core/api"
	"github.com/carverauto/chemvis/pkg/db"
	"github.com/carverauto/chemvis/pkg/lifecycle"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
	"github.com/carverauto/chemvis/pkg/natsutil"
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
	LoadSample bool
}

// Run boots the backend and blocks until ctx ends or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := lifecycle.SignalContext(ctx)
	defer stop()

	var cfg models.ServerConfig
	if err := config.NewConfig(nil).LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("chemvis-server", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := db.Open(ctx, &cfg.Database, mainLogger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			mainLogger.Error().Err(closeErr).Msg("Error closing store")
		}
	}()

	if cfg.LoadSample || opts.LoadSample {
		seeded, seedErr := db.SeedSample(ctx, store)
		if seedErr != nil {
			return fmt.Errorf("failed to seed sample data: %w", seedErr)
		}

		mainLogger.Info().Bool("seeded", seeded).Msg("Sample dataset checked")
	}

	provider, err := auth.NewLocalProvider(cfg.Users)
	if err != nil {
		return fmt.Errorf("auth provider: %w", err)
	}

	apiOptions := []func(*api.APIServer){
		api.WithStore(store),
		api.WithAuthProvider(provider),
		api.WithLogger(mainLogger),
	}

	var nc *nats.Conn

	if cfg.NATS.Enabled {
		nc, err = natsutil.Connect(&cfg.NATS, mainLogger)
		if err != nil {
			return err
		}
		defer nc.Close()

		publisher, pubErr := natsutil.NewEventPublisher(nc, cfg.NATS.Subject, mainLogger)
		if pubErr != nil {
			return pubErr
		}

		apiOptions = append(apiOptions, api.WithEventPublisher(publisher))
	}

	server, err := api.NewAPIServer(cfg.CORS, apiOptions...)
	if err != nil {
		return err
	}

	if nc != nil {
		if err := subscribeUpdates(nc, cfg.NATS.Subject, server.Hub(), mainLogger); err != nil {
			return err
		}
	}

	return server.Start(ctx, cfg.ListenAddr)
}

// subscribeUpdates fans upload events from every instance out to this
// instance's websocket clients.
func subscribeUpdates(nc *nats.Conn, subject string, hub *api.Hub, log logger.Logger) error {
	_, err := natsutil.SubscribeDataUpdated(nc, subject, log, func(ev models.UploadEventData) {
		n := hub.Broadcast(models.DataUpdateMessage{Message: models.DataUpdated})

		log.Debug().
			Int64("session_id", ev.SessionID).
			Str("filename", ev.Filename).
			Int("clients", n).
			Msg("Relayed upload event")
	})

	return err
}
