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
	"time"

	"github.com/carverauto/chemvis/pkg/models"
)

// DemoEquipment is the dataset shown before any backend has been reached.
func DemoEquipment() []models.EquipmentItem {
	return []models.EquipmentItem{
		{ID: 101, EquipmentName: "Centrifugal Pump A", EquipmentType: "Pump", Flowrate: 45.5, Pressure: 3.2, Temperature: 42.0},
		{ID: 102, EquipmentName: "High Temp Boiler", EquipmentType: "Boiler", Flowrate: 0, Pressure: 8.5, Temperature: 185.2},
		{ID: 103, EquipmentName: "Storage Tank Alpha", EquipmentType: "Tank", Flowrate: 12.0, Pressure: 1.1, Temperature: 22.5},
		{ID: 104, EquipmentName: "Process Heat Exchanger", EquipmentType: "Exchanger", Flowrate: 32.8, Pressure: 4.4, Temperature: 68.9},
		{ID: 105, EquipmentName: "Sludge Mixer 500", EquipmentType: "Mixer", Flowrate: 8.2, Pressure: 1.5, Temperature: 35.0},
		{ID: 106, EquipmentName: "Cooling Tower Fan", EquipmentType: "Cooling", Flowrate: 0, Pressure: 0.5, Temperature: 18.0},
	}
}

// DemoHistory returns the two demo log entries relative to now, newest first.
func DemoHistory(now time.Time) []models.HistoryEntry {
	return []models.HistoryEntry{
		{ID: 1, Filename: "sample_parameters.csv", UploadDate: now, ItemCount: 6},
		{ID: 2, Filename: "legacy_system_data.csv", UploadDate: now.Add(-24 * time.Hour), ItemCount: 12},
	}
}

// SampleItems is the reference dataset a fresh backend can be seeded with.
// Identifiers are left for the store to assign.
func SampleItems() []models.EquipmentItem {
	return []models.EquipmentItem{
		{EquipmentName: "Pump-A01", EquipmentType: "Centrifugal", Flowrate: 50.5, Pressure: 3.2, Temperature: 72.4},
		{EquipmentName: "Pump-B02", EquipmentType: "Positive Displacement", Flowrate: 42.3, Pressure: 2.8, Temperature: 68.9},
		{EquipmentName: "Compressor-C01", EquipmentType: "Reciprocating", Flowrate: 45.2, Pressure: 3.5, Temperature: 75.1},
		{EquipmentName: "Blower-D01", EquipmentType: "Centrifugal", Flowrate: 48.9, Pressure: 3.1, Temperature: 71.2},
		{EquipmentName: "Fan-E01", EquipmentType: "Axial", Flowrate: 40.1, Pressure: 2.5, Temperature: 65.8},
		{EquipmentName: "Motor-F01", EquipmentType: "Centrifugal", Flowrate: 55.0, Pressure: 3.3, Temperature: 73.5},
		{EquipmentName: "Turbine-G01", EquipmentType: "Axial", Flowrate: 52.0, Pressure: 3.4, Temperature: 76.2},
		{EquipmentName: "Expander-H01", EquipmentType: "Positive Displacement", Flowrate: 38.5, Pressure: 2.6, Temperature: 67.3},
	}
}

// SampleFilename labels the seeded sample upload.
const SampleFilename = "sample_equipment_data.csv"
