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

import (
	"sync"
	"time"
)

// Clock abstracts time for ingestion timestamps and identifiers.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// IDGenerator hands out identifiers derived from the clock in milliseconds.
// Identifiers are strictly increasing even when the clock stalls or steps back.
type IDGenerator struct {
	mu    sync.Mutex
	clock Clock
	last  int64
}

func NewIDGenerator(clock Clock) *IDGenerator {
	if clock == nil {
		clock = realClock{}
	}

	return &IDGenerator{clock: clock}
}

func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.clock.Now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}

	g.last = id

	return id
}
