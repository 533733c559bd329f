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

// Package models holds the shared data types of the dashboard client and server.
package models

import "time"

// EquipmentItem is one row of an ingested dataset.
type EquipmentItem struct {
	ID            int64   `json:"id"`
	EquipmentName string  `json:"equipment_name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

// SummaryStats is derived from the current item collection and never stored on its own.
// TotalEquipment always equals the sum of TypeDistribution values.
type SummaryStats struct {
	TotalEquipment   int            `json:"total_equipment"`
	AvgFlowrate      float64        `json:"avg_flowrate"`
	AvgPressure      float64        `json:"avg_pressure"`
	AvgTemperature   float64        `json:"avg_temperature"`
	TypeDistribution map[string]int `json:"type_distribution"`
}

// HistoryEntry records one ingestion.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
	ItemCount  int       `json:"item_count"`
}

// UploadResult is returned by both the live upload endpoint and local ingestion.
type UploadResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Demo    bool   `json:"demo,omitempty"`
}

// DataUpdateMessage is the only message sent on the change-notification channel.
type DataUpdateMessage struct {
	Message string `json:"message"`
}

// DataUpdated is the DataUpdateMessage payload signalling a data change.
const DataUpdated = "data_updated"

// Report is a rendered export ready to be written to disk.
type Report struct {
	Filename    string
	ContentType string
	Body        []byte
	Demo        bool
}

// Clone returns a deep copy of s.
func (s SummaryStats) Clone() SummaryStats {
	out := s
	out.TypeDistribution = make(map[string]int, len(s.TypeDistribution))

	for k, v := range s.TypeDistribution {
		out.TypeDistribution[k] = v
	}

	return out
}
