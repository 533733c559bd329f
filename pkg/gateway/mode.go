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

package gateway

import (
	"sync"
	"time"
)

// Mode says whether data is served by the backend or by the local dataset.
type Mode int32

const (
	ModeDemo Mode = iota
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}

	return "demo"
}

// Resource names a logical data source routed by the gateway.
type Resource string

const (
	ResourceSummary   Resource = "summary"
	ResourceEquipment Resource = "equipment"
	ResourceHistory   Resource = "history"
	ResourceUpload    Resource = "upload"
	ResourceReport    Resource = "report"
)

// ResourceStatus is the outcome of the most recent call for one resource.
type ResourceStatus struct {
	Mode      Mode
	Error     string
	CheckedAt time.Time
}

// ModeTracker is the single process-wide routing state. The last completed
// network call decides the mode; per-resource outcomes are kept alongside for
// diagnostics. Subscribers are woken through Changed on every transition.
type ModeTracker struct {
	mu          sync.RWMutex
	mode        Mode
	channelLive bool
	resources   map[Resource]ResourceStatus
	changed     chan struct{}
	now         func() time.Time
}

// NewModeTracker starts in demo mode until a backend call succeeds.
func NewModeTracker() *ModeTracker {
	return &ModeTracker{
		mode:      ModeDemo,
		resources: make(map[Resource]ResourceStatus),
		changed:   make(chan struct{}),
		now:       time.Now,
	}
}

func (t *ModeTracker) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.mode
}

func (t *ModeTracker) IsDemo() bool {
	return t.Mode() == ModeDemo
}

// Set records the global mode and notifies subscribers if it changed.
func (t *ModeTracker) Set(m Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mode == m {
		return
	}

	t.mode = m
	t.notifyLocked()
}

// Record stores the outcome for one resource without touching the global mode.
func (t *ModeTracker) Record(r Resource, err error) {
	st := ResourceStatus{Mode: ModeLive}
	if err != nil {
		st = ResourceStatus{Mode: ModeDemo, Error: err.Error()}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st.CheckedAt = t.now()
	t.resources[r] = st
}

// Resources returns a copy of the per-resource outcomes.
func (t *ModeTracker) Resources() map[Resource]ResourceStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Resource]ResourceStatus, len(t.resources))
	for k, v := range t.resources {
		out[k] = v
	}

	return out
}

// ChannelLive reports whether the change-notification channel is connected.
func (t *ModeTracker) ChannelLive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.channelLive
}

func (t *ModeTracker) SetChannelLive(live bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.channelLive == live {
		return
	}

	t.channelLive = live
	t.notifyLocked()
}

// Changed returns a channel closed on the next transition of mode or channel state.
func (t *ModeTracker) Changed() <-chan struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.changed
}

func (t *ModeTracker) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}
