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

package db

import (
	"context"
	"sort"
	"sync"

	"github.com/carverauto/chemvis/pkg/ingest"
	"github.com/carverauto/chemvis/pkg/models"
)

type memorySession struct {
	entry models.HistoryEntry
	items []models.EquipmentItem
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []memorySession
	nextID   int64
	nextItem int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) CreateUpload(_ context.Context, filename string, items []models.EquipmentItem) (models.HistoryEntry, error) {
	if len(items) == 0 {
		return models.HistoryEntry{}, ErrNoItems
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++

	sess := memorySession{
		entry: models.HistoryEntry{
			ID:         m.nextID,
			Filename:   filename,
			UploadDate: nowUTC(),
			ItemCount:  len(items),
		},
		items: make([]models.EquipmentItem, len(items)),
	}

	for i, it := range items {
		m.nextItem++
		it.ID = m.nextItem
		sess.items[i] = it
	}

	m.sessions = append([]memorySession{sess}, m.sessions...)
	if len(m.sessions) > MaxSessions {
		m.sessions = m.sessions[:MaxSessions]
	}

	return sess.entry, nil
}

func (m *MemoryStore) all() []models.EquipmentItem {
	var out []models.EquipmentItem
	for _, s := range m.sessions {
		out = append(out, s.items...)
	}

	return out
}

func (m *MemoryStore) Summary(context.Context) (models.SummaryStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ingest.Summarize(m.all()), nil
}

func (m *MemoryStore) ListEquipment(context.Context) ([]models.EquipmentItem, error) {
	m.mu.RLock()
	items := m.all()
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })

	if items == nil {
		items = []models.EquipmentItem{}
	}

	return items, nil
}

func (m *MemoryStore) ListHistory(context.Context) ([]models.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.HistoryEntry, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.entry
	}

	return out, nil
}

func (m *MemoryStore) Reset(context.Context) error {
	m.mu.Lock()
	m.sessions = nil
	m.mu.Unlock()

	return nil
}

func (*MemoryStore) Close() error {
	return nil
}
