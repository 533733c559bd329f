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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/chemvis/pkg/ingest"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

func stepClock(t *testing.T) {
	t.Helper()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	prev := nowUTC
	nowUTC = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}

	t.Cleanup(func() { nowUTC = prev })
}

type storeFactory func(t *testing.T) Store

func stores(t *testing.T) map[string]storeFactory {
	t.Helper()

	out := map[string]storeFactory{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "chemvis.db"), logger.NewTestLogger())
			require.NoError(t, err)

			return s
		},
	}

	if dsn := os.Getenv("CHEMVIS_TEST_POSTGRES_DSN"); dsn != "" {
		out["postgres"] = func(t *testing.T) Store {
			s, err := NewPostgresStore(context.Background(),
				&models.DatabaseConfig{Driver: models.DriverPostgres, DSN: dsn, MaxConns: 2}, logger.NewTestLogger())
			require.NoError(t, err)
			require.NoError(t, s.Reset(context.Background()))

			return s
		}
	}

	return out
}

func TestStores(t *testing.T) {
	for name, factory := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("empty", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				ctx := context.Background()

				stats, err := s.Summary(ctx)
				require.NoError(t, err)
				assert.Zero(t, stats.TotalEquipment)
				assert.Zero(t, stats.AvgFlowrate)
				assert.NotNil(t, stats.TypeDistribution)
				assert.Empty(t, stats.TypeDistribution)

				items, err := s.ListEquipment(ctx)
				require.NoError(t, err)
				assert.NotNil(t, items)
				assert.Empty(t, items)

				history, err := s.ListHistory(ctx)
				require.NoError(t, err)
				assert.Empty(t, history)
			})

			t.Run("sample", func(t *testing.T) {
				stepClock(t)

				s := factory(t)
				defer func() { _ = s.Close() }()

				ctx := context.Background()

				seeded, err := SeedSample(ctx, s)
				require.NoError(t, err)
				assert.True(t, seeded)

				seeded, err = SeedSample(ctx, s)
				require.NoError(t, err)
				assert.False(t, seeded)

				stats, err := s.Summary(ctx)
				require.NoError(t, err)
				assert.Equal(t, 8, stats.TotalEquipment)
				assert.InDelta(t, 46.56, stats.AvgFlowrate, 0.011)
				assert.InDelta(t, 3.05, stats.AvgPressure, 0.011)
				assert.InDelta(t, 71.3, stats.AvgTemperature, 0.011)
				assert.Equal(t, map[string]int{
					"Centrifugal":           3,
					"Positive Displacement": 2,
					"Reciprocating":         1,
					"Axial":                 2,
				}, stats.TypeDistribution)

				history, err := s.ListHistory(ctx)
				require.NoError(t, err)
				require.Len(t, history, 1)
				assert.Equal(t, ingest.SampleFilename, history[0].Filename)
				assert.Equal(t, 8, history[0].ItemCount)

				items, err := s.ListEquipment(ctx)
				require.NoError(t, err)
				require.Len(t, items, 8)
				assert.Equal(t, "Expander-H01", items[0].EquipmentName)
				assert.Greater(t, items[0].ID, items[7].ID)
			})

			t.Run("retention", func(t *testing.T) {
				stepClock(t)

				s := factory(t)
				defer func() { _ = s.Close() }()

				ctx := context.Background()

				for i := 1; i <= MaxSessions+2; i++ {
					entry, err := s.CreateUpload(ctx, fmt.Sprintf("upload-%d.csv", i), []models.EquipmentItem{
						{EquipmentName: fmt.Sprintf("Pump-%d", i), EquipmentType: "Pump", Flowrate: float64(i), Pressure: 1, Temperature: 20},
					})
					require.NoError(t, err)
					assert.Equal(t, 1, entry.ItemCount)
				}

				history, err := s.ListHistory(ctx)
				require.NoError(t, err)
				require.Len(t, history, MaxSessions)
				assert.Equal(t, "upload-7.csv", history[0].Filename)
				assert.Equal(t, "upload-3.csv", history[MaxSessions-1].Filename)

				items, err := s.ListEquipment(ctx)
				require.NoError(t, err)
				require.Len(t, items, MaxSessions)
				assert.Equal(t, "Pump-7", items[0].EquipmentName)

				stats, err := s.Summary(ctx)
				require.NoError(t, err)
				assert.Equal(t, MaxSessions, stats.TotalEquipment)
				assert.InDelta(t, 5.0, stats.AvgFlowrate, 0.001)
				assert.Equal(t, map[string]int{"Pump": MaxSessions}, stats.TypeDistribution)
			})

			t.Run("rejects empty upload", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				_, err := s.CreateUpload(context.Background(), "empty.csv", nil)
				require.ErrorIs(t, err, ErrNoItems)
			})

			t.Run("reset", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				ctx := context.Background()

				_, err := SeedSample(ctx, s)
				require.NoError(t, err)
				require.NoError(t, s.Reset(ctx))

				history, err := s.ListHistory(ctx)
				require.NoError(t, err)
				assert.Empty(t, history)
			})
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &models.DatabaseConfig{Driver: models.DriverMemory}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, &models.DatabaseConfig{Driver: "oracle"}, logger.NewTestLogger())
	require.ErrorIs(t, err, errUnknownDriver)
}

func TestSeedSampleQueryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStore(ctrl)
	store.EXPECT().ListHistory(gomock.Any()).Return(nil, ErrFailedToQuery)

	seeded, err := SeedSample(context.Background(), store)
	require.ErrorIs(t, err, ErrFailedToQuery)
	assert.False(t, seeded)
}

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements(`
-- leading comment
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX i ON a(id);
SELECT 1`)

	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.NotContains(t, stmts[0], ";")
	assert.Equal(t, "CREATE INDEX i ON a(id)", stmts[1])
	assert.Equal(t, "SELECT 1", stmts[2])
}
