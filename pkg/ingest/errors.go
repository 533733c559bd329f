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

import "errors"

var (
	// ErrFileRead is returned when the uploaded payload cannot be read.
	ErrFileRead = errors.New("file read error")
	// ErrParse wraps every CSV parse failure.
	ErrParse = errors.New("failed to parse CSV")
	// ErrEmptyCSV means the payload had no data rows after the header.
	ErrEmptyCSV = errors.New("CSV file is empty or missing data")
	// ErrMissingColumn is returned by strict parsing when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidRow is returned by strict parsing for a malformed data row.
	ErrInvalidRow = errors.New("invalid row")
)
