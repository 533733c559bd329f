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
	"math"

	"github.com/carverauto/chemvis/pkg/models"
)

// Summarize computes count, rounded means and the type histogram of items.
// An empty collection yields zero averages and an empty histogram.
func Summarize(items []models.EquipmentItem) models.SummaryStats {
	stats := models.SummaryStats{
		TotalEquipment:   len(items),
		TypeDistribution: make(map[string]int),
	}

	if len(items) == 0 {
		return stats
	}

	var flow, pressure, temp float64

	for i := range items {
		flow += items[i].Flowrate
		pressure += items[i].Pressure
		temp += items[i].Temperature
		stats.TypeDistribution[items[i].EquipmentType]++
	}

	n := float64(len(items))
	stats.AvgFlowrate = Round2(flow / n)
	stats.AvgPressure = Round2(pressure / n)
	stats.AvgTemperature = Round2(temp / n)

	return stats
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
