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

// Package db pkg/db/interfaces.go
package db

import (
	"context"

	"github.com/carverauto/chemvis/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/chemvis/pkg/db Store

// Store persists upload sessions and their equipment rows. Only the
// MaxSessions most recent sessions are retained; evicting a session removes
// its rows.
type Store interface {
	// CreateUpload records a session with its items and applies retention.
	CreateUpload(ctx context.Context, filename string, items []models.EquipmentItem) (models.HistoryEntry, error)
	// Summary aggregates every retained row.
	Summary(ctx context.Context) (models.SummaryStats, error)
	// ListEquipment returns every retained row, newest first.
	ListEquipment(ctx context.Context) ([]models.EquipmentItem, error)
	// ListHistory returns retained sessions, newest first.
	ListHistory(ctx context.Context) ([]models.HistoryEntry, error)
	Reset(ctx context.Context) error
	Close() error
}
