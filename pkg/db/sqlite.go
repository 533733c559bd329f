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
	"database/sql"
	"fmt"

	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// SQLiteStore persists sessions in a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens dsn (a path or file: URI) and applies the schema.
func NewSQLiteStore(ctx context.Context, dsn string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	exec := func(ctx context.Context, stmt string) error {
		_, err := conn.ExecContext(ctx, stmt)
		return err
	}

	if err := exec(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	if err := applySchema(ctx, "sqlite.sql", exec, log); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info().Str("dsn", dsn).Msg("Opened SQLite store")

	return &SQLiteStore{db: conn, logger: log}, nil
}

func (s *SQLiteStore) CreateUpload(ctx context.Context, filename string, items []models.EquipmentItem) (models.HistoryEntry, error) {
	if len(items) == 0 {
		return models.HistoryEntry{}, ErrNoItems
	}

	entry := models.HistoryEntry{Filename: filename, UploadDate: nowUTC(), ItemCount: len(items)}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return entry, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO upload_sessions (filename, upload_date, item_count) VALUES (?, ?, ?)`,
		entry.Filename, entry.UploadDate, entry.ItemCount)
	if err != nil {
		return entry, fmt.Errorf("%w: session: %w", ErrFailedToInsert, err)
	}

	if entry.ID, err = res.LastInsertId(); err != nil {
		return entry, fmt.Errorf("%w: session id: %w", ErrFailedToInsert, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO equipment
		(session_id, equipment_name, equipment_type, flowrate, pressure, temperature)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return entry, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range items {
		it := &items[i]
		if _, err := stmt.ExecContext(ctx, entry.ID, it.EquipmentName, it.EquipmentType,
			it.Flowrate, it.Pressure, it.Temperature); err != nil {
			return entry, fmt.Errorf("%w: equipment row %d: %w", ErrFailedToInsert, i+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(retainSessions, MaxSessions)); err != nil {
		return entry, fmt.Errorf("%w: retention: %w", ErrFailedToInsert, err)
	}

	if _, err := tx.ExecContext(ctx, pruneOrphans); err != nil {
		return entry, fmt.Errorf("%w: retention: %w", ErrFailedToInsert, err)
	}

	if err := tx.Commit(); err != nil {
		return entry, fmt.Errorf("%w: commit: %w", ErrFailedToInsert, err)
	}

	return entry, nil
}

func (s *SQLiteStore) Summary(ctx context.Context) (models.SummaryStats, error) {
	var (
		count            int
		avgF, avgP, avgT float64
	)

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(AVG(flowrate), 0), COALESCE(AVG(pressure), 0), COALESCE(AVG(temperature), 0)
		FROM equipment`).Scan(&count, &avgF, &avgP, &avgT)
	if err != nil {
		return models.SummaryStats{}, fmt.Errorf("%w: summary: %w", ErrFailedToQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT equipment_type, COUNT(*) FROM equipment GROUP BY equipment_type`)
	if err != nil {
		return models.SummaryStats{}, fmt.Errorf("%w: distribution: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	dist := make(map[string]int)

	for rows.Next() {
		var (
			typ string
			n   int
		)

		if err := rows.Scan(&typ, &n); err != nil {
			return models.SummaryStats{}, fmt.Errorf("%w: distribution: %w", ErrFailedToQuery, err)
		}

		dist[typ] = n
	}

	if err := rows.Err(); err != nil {
		return models.SummaryStats{}, fmt.Errorf("%w: distribution: %w", ErrFailedToQuery, err)
	}

	return summarize(count, avgF, avgP, avgT, dist), nil
}

func (s *SQLiteStore) ListEquipment(ctx context.Context) ([]models.EquipmentItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, equipment_name, equipment_type, flowrate, pressure, temperature
		FROM equipment ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: equipment: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	items := []models.EquipmentItem{}

	for rows.Next() {
		var it models.EquipmentItem
		if err := rows.Scan(&it.ID, &it.EquipmentName, &it.EquipmentType, &it.Flowrate, &it.Pressure, &it.Temperature); err != nil {
			return nil, fmt.Errorf("%w: equipment: %w", ErrFailedToQuery, err)
		}

		items = append(items, it)
	}

	return items, rows.Err()
}

func (s *SQLiteStore) ListHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, upload_date, item_count
		FROM upload_sessions ORDER BY upload_date DESC, id DESC LIMIT ?`, MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	entries := []models.HistoryEntry{}

	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.Filename, &e.UploadDate, &e.ItemCount); err != nil {
			return nil, fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM equipment`); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM upload_sessions`)

	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
