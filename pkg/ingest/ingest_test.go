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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/chemvis/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk gone")
}

const pumpTankCSV = "name,type,flow,pressure,temp\nPump1,Pump,10,2,50\nTank1,Tank,0,1,20\n"

func TestIngestComputesSummary(t *testing.T) {
	a := NewAggregator()

	res, err := a.Ingest("plant.csv", strings.NewReader(pumpTankCSV))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Demo)
	assert.Equal(t, DemoUploadMessage, res.Message)

	s := a.Summary()
	assert.Equal(t, 2, s.TotalEquipment)
	assert.InDelta(t, 5.0, s.AvgFlowrate, 1e-9)
	assert.InDelta(t, 1.5, s.AvgPressure, 1e-9)
	assert.InDelta(t, 35.0, s.AvgTemperature, 1e-9)
	assert.Equal(t, map[string]int{"Pump": 1, "Tank": 1}, s.TypeDistribution)

	items := a.Equipment()
	require.Len(t, items, 2)
	assert.Equal(t, "Pump1", items[0].EquipmentName)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestIngestHeaderOnlyKeepsState(t *testing.T) {
	a := NewDemoAggregator()
	before := a.Snapshot()

	_, err := a.Ingest("empty.csv", strings.NewReader("name,type,flow,pressure,temp\n\n   \n"))
	require.ErrorIs(t, err, ErrParse)
	require.ErrorIs(t, err, ErrEmptyCSV)
	assert.Contains(t, err.Error(), "failed to parse CSV: CSV file is empty or missing data")

	assert.Equal(t, before, a.Snapshot())
}

func TestIngestReadError(t *testing.T) {
	a := NewAggregator()

	_, err := a.Ingest("broken.csv", failingReader{})
	require.ErrorIs(t, err, ErrFileRead)
	assert.Empty(t, a.History())
}

func TestIngestRecomputesNotAccumulates(t *testing.T) {
	a := NewAggregator()

	_, err := a.Ingest("a.csv", strings.NewReader(pumpTankCSV))
	require.NoError(t, err)

	_, err = a.Ingest("b.csv", strings.NewReader("h\nMixer,Mixer,3,3,3\n"))
	require.NoError(t, err)

	s := a.Summary()
	assert.Equal(t, 1, s.TotalEquipment)
	assert.InDelta(t, 3.0, s.AvgFlowrate, 1e-9)
	assert.Equal(t, map[string]int{"Mixer": 1}, s.TypeDistribution)
}

func TestHistoryBoundedNewestFirst(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	a := NewAggregator(WithClock(clock))

	for i := 1; i <= 6; i++ {
		clock.now = clock.now.Add(time.Minute)

		_, err := a.Ingest(fmt.Sprintf("upload-%d.csv", i), strings.NewReader(pumpTankCSV))
		require.NoError(t, err)
	}

	h := a.History()
	require.Len(t, h, MaxHistory)
	assert.Equal(t, "upload-6.csv", h[0].Filename)
	assert.Equal(t, "upload-2.csv", h[4].Filename)
	assert.Equal(t, 2, h[0].ItemCount)

	for i := 1; i < len(h); i++ {
		assert.True(t, h[i-1].UploadDate.After(h[i].UploadDate))
	}
}

func TestParseCSVPermissiveDefaults(t *testing.T) {
	payload := "header\n,,abc\nOnlyName\nValve,Valve,1.5,2.5,3.5,extra\n"

	items, err := ParseCSV(strings.NewReader(payload), NewIDGenerator(nil))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Unknown Item", items[0].EquipmentName)
	assert.Equal(t, "General", items[0].EquipmentType)
	assert.Zero(t, items[0].Flowrate)

	assert.Equal(t, "OnlyName", items[1].EquipmentName)
	assert.Equal(t, "General", items[1].EquipmentType)
	assert.Zero(t, items[1].Temperature)

	assert.InDelta(t, 1.5, items[2].Flowrate, 1e-9)
	assert.InDelta(t, 3.5, items[2].Temperature, 1e-9)
}

func TestParseCSVNumericPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"42.5", 42.5},
		{"42.5 m3/h", 42.5},
		{"-3", -3},
		{"1e2", 100},
		{"1e", 1},
		{"abc", 0},
		{"", 0},
		{".", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, numberColumn([]string{tt.in}, 0), 1e-9)
		})
	}
}

func TestParseCSVStrict(t *testing.T) {
	t.Run("header order independent", func(t *testing.T) {
		payload := "Type,Equipment Name,Temperature,Pressure,Flowrate\nPump,P-1,70,3,50\n\nFan,F-1,60,2,40\n"

		items, err := ParseCSVStrict(strings.NewReader(payload))
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "P-1", items[0].EquipmentName)
		assert.InDelta(t, 50.0, items[0].Flowrate, 1e-9)
		assert.InDelta(t, 70.0, items[0].Temperature, 1e-9)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := ParseCSVStrict(strings.NewReader("Equipment Name,Type,Flowrate\nP,Pump,1\n"))
		require.ErrorIs(t, err, ErrMissingColumn)
		assert.Contains(t, err.Error(), "Pressure, Temperature")
	})

	t.Run("bad number", func(t *testing.T) {
		_, err := ParseCSVStrict(strings.NewReader("Equipment Name,Type,Flowrate,Pressure,Temperature\nP,Pump,fast,1,1\n"))
		require.ErrorIs(t, err, ErrInvalidRow)
		assert.Contains(t, err.Error(), "row 2")
	})

	t.Run("short row", func(t *testing.T) {
		_, err := ParseCSVStrict(strings.NewReader("Equipment Name,Type,Flowrate,Pressure,Temperature\nP,Pump\n"))
		require.ErrorIs(t, err, ErrInvalidRow)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseCSVStrict(strings.NewReader(""))
		require.ErrorIs(t, err, ErrEmptyCSV)

		_, err = ParseCSVStrict(strings.NewReader("Equipment Name,Type,Flowrate,Pressure,Temperature\n"))
		require.ErrorIs(t, err, ErrEmptyCSV)
	})
}

func TestSummarizeInvariants(t *testing.T) {
	assert.Equal(t, models.SummaryStats{TypeDistribution: map[string]int{}}, Summarize(nil))

	items := SampleItems()
	s := Summarize(items)

	total := 0
	for _, n := range s.TypeDistribution {
		total += n
	}

	assert.Equal(t, len(items), s.TotalEquipment)
	assert.Equal(t, s.TotalEquipment, total)
	assert.InDelta(t, 46.56, s.AvgFlowrate, 0.011)
	assert.InDelta(t, 3.05, s.AvgPressure, 0.011)
	assert.InDelta(t, 71.3, s.AvgTemperature, 0.011)
	assert.Equal(t, 3, s.TypeDistribution["Centrifugal"])
}

func TestIDGeneratorMonotonic(t *testing.T) {
	clock := &fixedClock{now: time.UnixMilli(1000)}
	g := NewIDGenerator(clock)

	assert.Equal(t, int64(1000), g.Next())
	assert.Equal(t, int64(1001), g.Next())

	clock.now = time.UnixMilli(500)
	assert.Equal(t, int64(1002), g.Next())

	clock.now = time.UnixMilli(5000)
	assert.Equal(t, int64(5000), g.Next())
}

func TestDemoAggregatorSeed(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	a := NewDemoAggregator(WithClock(clock))

	snap := a.Snapshot()
	assert.Equal(t, 6, snap.Summary.TotalEquipment)
	require.Len(t, snap.History, 2)
	assert.Equal(t, "sample_parameters.csv", snap.History[0].Filename)
	assert.Equal(t, clock.now.Add(-24*time.Hour), snap.History[1].UploadDate)

	snap.Equipment[0].EquipmentName = "mutated"
	assert.Equal(t, "Centrifugal Pump A", a.Equipment()[0].EquipmentName)
}
