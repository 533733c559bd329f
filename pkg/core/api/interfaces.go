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

package api

import (
	"context"
	"errors"

	"github.com/carverauto/chemvis/pkg/models"
)

const (
	msgNoFile        = "No file uploaded."
	msgNoReportData  = "No data available for report generation."
	defaultMaxUpload = 10 << 20
)

var errNoStore = errors.New("api server requires a store")

// EventPublisher announces stored uploads to other server instances.
type EventPublisher interface {
	PublishDataUpdated(ctx context.Context, entry models.HistoryEntry) error
}
