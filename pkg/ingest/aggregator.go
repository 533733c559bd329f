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

// Package ingest turns uploaded CSV payloads into equipment records and keeps
// the locally held dataset used while the backend is unreachable.
package ingest

import (
	"io"
	"sync"

	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

// DemoUploadMessage is reported for a successful local ingestion.
const DemoUploadMessage = "Demo Mode: Dataset processed locally."

// Snapshot is a consistent copy of the aggregator state.
type Snapshot struct {
	Summary   models.SummaryStats
	Equipment []models.EquipmentItem
	History   []models.HistoryEntry
}

// Aggregator owns the local item collection, its summary and the ingestion log.
type Aggregator struct {
	mu      sync.RWMutex
	clock   Clock
	ids     *IDGenerator
	logger  logger.Logger
	items   []models.EquipmentItem
	summary models.SummaryStats
	history *History
}

type Option func(*Aggregator)

func WithClock(c Clock) Option {
	return func(a *Aggregator) {
		a.clock = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// NewAggregator returns an empty aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		clock:   realClock{},
		logger:  logger.NewTestLogger(),
		history: NewHistory(MaxHistory),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.ids = NewIDGenerator(a.clock)
	a.summary = Summarize(nil)

	return a
}

// NewDemoAggregator returns an aggregator seeded with the built-in demo dataset.
func NewDemoAggregator(opts ...Option) *Aggregator {
	a := NewAggregator(opts...)
	a.Load(DemoEquipment(), DemoHistory(a.clock.Now()))

	return a
}

// Load replaces the state with items and history without recording an ingestion.
func (a *Aggregator) Load(items []models.EquipmentItem, history []models.HistoryEntry) {
	h := NewHistory(MaxHistory)
	for i := len(history) - 1; i >= 0; i-- {
		h.Prepend(history[i])
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = cloneItems(items)
	a.summary = Summarize(a.items)
	a.history = h
}

// Ingest parses the payload, replaces the collection and records the upload.
// On failure the previous state is left untouched.
func (a *Aggregator) Ingest(filename string, r io.Reader) (models.UploadResult, error) {
	items, err := ParseCSV(r, a.ids)
	if err != nil {
		a.logger.Warn().Err(err).Str("filename", filename).Msg("Local ingestion failed")
		return models.UploadResult{}, err
	}

	entry := models.HistoryEntry{
		ID:         a.ids.Next(),
		Filename:   filename,
		UploadDate: a.clock.Now(),
		ItemCount:  len(items),
	}

	a.mu.Lock()
	a.items = items
	a.summary = Summarize(items)
	a.history.Prepend(entry)
	a.mu.Unlock()

	a.logger.Info().Str("filename", filename).Int("items", len(items)).Msg("Dataset processed locally")

	return models.UploadResult{
		Success: true,
		Message: DemoUploadMessage,
		Demo:    true,
	}, nil
}

func (a *Aggregator) Summary() models.SummaryStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.summary.Clone()
}

func (a *Aggregator) Equipment() []models.EquipmentItem {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return cloneItems(a.items)
}

func (a *Aggregator) History() []models.HistoryEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.history.Entries()
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return Snapshot{
		Summary:   a.summary.Clone(),
		Equipment: cloneItems(a.items),
		History:   a.history.Entries(),
	}
}

func cloneItems(items []models.EquipmentItem) []models.EquipmentItem {
	out := make([]models.EquipmentItem, len(items))
	copy(out, items)

	return out
}
