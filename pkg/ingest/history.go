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

package ingest

import "github.com/carverauto/chemvis/pkg/models"

// MaxHistory bounds the ingestion log.
const MaxHistory = 5

// History is a newest-first log holding at most limit entries. It is not
// safe for concurrent use.
type History struct {
	limit   int
	entries []models.HistoryEntry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = MaxHistory
	}

	return &History{limit: limit, entries: make([]models.HistoryEntry, 0, limit)}
}

// Prepend adds e as the newest entry and evicts the oldest beyond the limit.
func (h *History) Prepend(e models.HistoryEntry) {
	h.entries = append([]models.HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Entries returns a copy, newest first.
func (h *History) Entries() []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(h.entries))
	copy(out, h.entries)

	return out
}

func (h *History) Len() int {
	return len(h.entries)
}
