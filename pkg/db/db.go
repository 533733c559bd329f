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
	"fmt"
	"time"

	"github.com/carverauto/chemvis/pkg/ingest"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

// MaxSessions is the number of upload sessions kept.
const MaxSessions = ingest.MaxHistory

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (Store, error) {
	switch cfg.Driver {
	case models.DriverMemory, "":
		return NewMemoryStore(), nil
	case models.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.DSN, log)
	case models.DriverPostgres:
		return NewPostgresStore(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownDriver, cfg.Driver)
	}
}

// SeedSample loads the sample dataset when the store holds no sessions.
// It reports whether anything was written.
func SeedSample(ctx context.Context, s Store) (bool, error) {
	history, err := s.ListHistory(ctx)
	if err != nil {
		return false, err
	}

	if len(history) > 0 {
		return false, nil
	}

	if _, err := s.CreateUpload(ctx, ingest.SampleFilename, ingest.SampleItems()); err != nil {
		return false, err
	}

	return true, nil
}

// summarize finishes aggregate rows the same way for every backend.
func summarize(count int, avgFlow, avgPressure, avgTemp float64, dist map[string]int) models.SummaryStats {
	if dist == nil {
		dist = map[string]int{}
	}

	if count == 0 {
		return models.SummaryStats{TypeDistribution: dist}
	}

	return models.SummaryStats{
		TotalEquipment:   count,
		AvgFlowrate:      ingest.Round2(avgFlow),
		AvgPressure:      ingest.Round2(avgPressure),
		AvgTemperature:   ingest.Round2(avgTemp),
		TypeDistribution: dist,
	}
}

var nowUTC = func() time.Time {
	return time.Now().UTC()
}
