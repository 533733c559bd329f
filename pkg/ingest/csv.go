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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carverauto/chemvis/pkg/models"
)

const (
	defaultName = "Unknown Item"
	defaultType = "General"

	minLines = 2
)

// Required headers for strict parsing.
const (
	ColumnName        = "Equipment Name"
	ColumnType        = "Type"
	ColumnFlowrate    = "Flowrate"
	ColumnPressure    = "Pressure"
	ColumnTemperature = "Temperature"
)

var requiredColumns = []string{ColumnName, ColumnType, ColumnFlowrate, ColumnPressure, ColumnTemperature}

// ParseCSV parses a comma-delimited payload with a header row into items.
// Columns are positional: name, type, flowrate, pressure, temperature.
// Missing names and types get placeholders and unparsable numbers become 0.
// Rows with extra or missing columns are accepted.
func ParseCSV(r io.Reader, ids *IDGenerator) ([]models.EquipmentItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileRead, err)
	}

	lines := make([]string, 0, strings.Count(string(data), "\n")+1)

	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < minLines {
		return nil, fmt.Errorf("%w: %w", ErrParse, ErrEmptyCSV)
	}

	items := make([]models.EquipmentItem, 0, len(lines)-1)

	for _, line := range lines[1:] {
		cols := strings.Split(line, ",")

		items = append(items, models.EquipmentItem{
			ID:            ids.Next(),
			EquipmentName: textColumn(cols, 0, defaultName),
			EquipmentType: textColumn(cols, 1, defaultType),
			Flowrate:      numberColumn(cols, 2),
			Pressure:      numberColumn(cols, 3),
			Temperature:   numberColumn(cols, 4),
		})
	}

	return items, nil
}

func textColumn(cols []string, idx int, fallback string) string {
	if idx >= len(cols) {
		return fallback
	}

	if v := strings.TrimSpace(cols[idx]); v != "" {
		return v
	}

	return fallback
}

func numberColumn(cols []string, idx int) float64 {
	if idx >= len(cols) {
		return 0
	}

	v, err := strconv.ParseFloat(leadingNumber(strings.TrimSpace(cols[idx])), 64)
	if err != nil {
		return 0
	}

	return v
}

// leadingNumber returns the longest numeric prefix of s, so "42.5 m3/h" reads as 42.5.
func leadingNumber(s string) string {
	end := 0
	seenDigit, seenDot, seenExp := false, false, false

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			return trimIncomplete(s[:end])
		}

		end = i + 1
	}

	return trimIncomplete(s[:end])
}

func trimIncomplete(s string) string {
	return strings.TrimRight(s, "eE+-")
}

// ParseCSVStrict parses a payload whose header names the required columns in
// any order. Every row must carry all columns and numeric readings must parse.
func ParseCSVStrict(r io.Reader) ([]models.EquipmentItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrParse, ErrEmptyCSV)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var missing []string

	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	var items []models.EquipmentItem

	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}

		if isBlank(record) {
			continue
		}

		item, err := strictItem(record, index)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrInvalidRow, row, err)
		}

		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrParse, ErrEmptyCSV)
	}

	return items, nil
}

func strictItem(record []string, index map[string]int) (models.EquipmentItem, error) {
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(record) {
			return "", fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}

		return strings.TrimSpace(record[i]), nil
	}

	var (
		item models.EquipmentItem
		err  error
	)

	if item.EquipmentName, err = field(ColumnName); err != nil {
		return item, err
	}

	if item.EquipmentType, err = field(ColumnType); err != nil {
		return item, err
	}

	readings := []struct {
		col string
		dst *float64
	}{
		{ColumnFlowrate, &item.Flowrate},
		{ColumnPressure, &item.Pressure},
		{ColumnTemperature, &item.Temperature},
	}

	for _, rd := range readings {
		raw, err := field(rd.col)
		if err != nil {
			return item, err
		}

		if *rd.dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return item, fmt.Errorf("%s %q is not a number", rd.col, raw)
		}
	}

	return item, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}
