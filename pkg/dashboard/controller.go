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

// Package dashboard holds the visible dashboard state and keeps it in sync
// with the data source gateway.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/carverauto/chemvis/pkg/gateway"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

var errNoReportDir = errors.New("report directory is required")

// Source is the gateway surface the controller depends on.
type Source interface {
	FetchAll(ctx context.Context) gateway.Dataset
	UploadCSV(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error)
	DownloadReport(ctx context.Context) (models.Report, error)
	Modes() *gateway.ModeTracker
}

// Runner runs the change-notification listener until ctx ends.
type Runner interface {
	Run(ctx context.Context) error
}

// State is what the dashboard shows.
type State struct {
	Summary     models.SummaryStats
	Equipment   []models.EquipmentItem
	History     []models.HistoryEntry
	Mode        gateway.Mode
	ChannelLive bool
	Loading     bool
	LastError   error
	UpdatedAt   time.Time
}

// Controller serialises refreshes and publishes each new State to subscribers.
type Controller struct {
	source Source
	logger logger.Logger
	now    func() time.Time

	refreshMu sync.Mutex

	mu          sync.RWMutex
	state       State
	subscribers []chan State
}

func NewController(source Source, log logger.Logger) *Controller {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Controller{
		source: source,
		logger: log,
		now:    time.Now,
		state:  State{Mode: source.Modes().Mode()},
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Subscribe returns a channel receiving every published state. Slow readers
// only see the latest state.
func (c *Controller) Subscribe() <-chan State {
	ch := make(chan State, 1)

	c.mu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.mu.Unlock()

	return ch
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	st := c.state
	subs := c.subscribers
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case <-ch:
		default:
		}

		select {
		case ch <- st:
		default:
		}
	}
}

// Refresh runs one joint fetch cycle and publishes the result only after all
// three resources have resolved.
func (c *Controller) Refresh(ctx context.Context) State {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.update(func(s *State) { s.Loading = true })

	ds := c.source.FetchAll(ctx)
	modes := c.source.Modes()

	c.update(func(s *State) {
		s.Summary = ds.Summary
		s.Equipment = ds.Equipment
		s.History = ds.History
		s.Mode = ds.Mode
		s.ChannelLive = modes.ChannelLive()
		s.Loading = false
		s.UpdatedAt = c.now()
	})

	c.logger.Debug().Str("mode", ds.Mode.String()).Int("items", len(ds.Equipment)).Msg("Dashboard refreshed")

	return c.State()
}

// Upload sends the CSV at path through the gateway and refreshes on success.
func (c *Controller) Upload(ctx context.Context, path string) (models.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		c.setError(err)
		return models.UploadResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	res, err := c.source.UploadCSV(ctx, filepath.Base(path), f)
	if err != nil {
		c.setError(err)
		return res, err
	}

	c.setError(nil)
	c.Refresh(ctx)

	return res, nil
}

// ExportReport downloads the report and writes it into dir.
func (c *Controller) ExportReport(ctx context.Context, dir string) (string, models.Report, error) {
	if dir == "" {
		return "", models.Report{}, errNoReportDir
	}

	rep, err := c.source.DownloadReport(ctx)
	if err != nil {
		c.setError(err)
		return "", rep, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", rep, fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, rep.Filename)
	if err := os.WriteFile(path, rep.Body, 0o600); err != nil {
		c.setError(err)
		return "", rep, fmt.Errorf("write report: %w", err)
	}

	c.logger.Info().Str("path", path).Bool("demo", rep.Demo).Msg("Report exported")

	return path, rep, nil
}

func (c *Controller) setError(err error) {
	c.update(func(s *State) { s.LastError = err })
}

// Run performs the initial refresh, then keeps the channel indicator current
// and runs the listener until ctx ends.
func (c *Controller) Run(ctx context.Context, listener Runner) error {
	c.Refresh(ctx)

	go c.trackModes(ctx)

	if listener == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	return listener.Run(ctx)
}

func (c *Controller) trackModes(ctx context.Context) {
	modes := c.source.Modes()

	for {
		changed := modes.Changed()

		c.update(func(s *State) {
			s.Mode = modes.Mode()
			s.ChannelLive = modes.ChannelLive()
		})

		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}
