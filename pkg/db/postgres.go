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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

// PostgresStore persists sessions in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresStore connects using cfg.DSN and applies the schema.
func NewPostgresStore(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %w", ErrFailedOpenDB, err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrFailedOpenDB, err)
	}

	exec := func(ctx context.Context, stmt string) error {
		_, err := pool.Exec(ctx, stmt)
		return err
	}

	if err := applySchema(ctx, "postgres.sql", exec, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to PostgreSQL")

	return &PostgresStore{pool: pool, logger: log}, nil
}

func (s *PostgresStore) CreateUpload(ctx context.Context, filename string, items []models.EquipmentItem) (models.HistoryEntry, error) {
	if len(items) == 0 {
		return models.HistoryEntry{}, ErrNoItems
	}

	entry := models.HistoryEntry{Filename: filename, UploadDate: nowUTC(), ItemCount: len(items)}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return entry, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO upload_sessions (filename, upload_date, item_count) VALUES ($1, $2, $3) RETURNING id`,
		entry.Filename, entry.UploadDate, entry.ItemCount).Scan(&entry.ID)
	if err != nil {
		return entry, fmt.Errorf("%w: session: %w", ErrFailedToInsert, err)
	}

	rows := make([][]interface{}, len(items))
	for i := range items {
		it := &items[i]
		rows[i] = []interface{}{entry.ID, it.EquipmentName, it.EquipmentType, it.Flowrate, it.Pressure, it.Temperature}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"equipment"},
		[]string{"session_id", "equipment_name", "equipment_type", "flowrate", "pressure", "temperature"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return entry, fmt.Errorf("%w: equipment: %w", ErrFailedToInsert, err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(retainSessions, MaxSessions)); err != nil {
		return entry, fmt.Errorf("%w: retention: %w", ErrFailedToInsert, err)
	}

	if _, err := tx.Exec(ctx, pruneOrphans); err != nil {
		return entry, fmt.Errorf("%w: retention: %w", ErrFailedToInsert, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return entry, fmt.Errorf("%w: commit: %w", ErrFailedToInsert, err)
	}

	return entry, nil
}

func (s *PostgresStore) Summary(ctx context.Context) (models.SummaryStats, error) {
	var (
		count            int
		avgF, avgP, avgT float64
	)

	err := s.pool.QueryRow(ctx, `SELECT COUNT(*)::int,
		COALESCE(AVG(flowrate), 0), COALESCE(AVG(pressure), 0), COALESCE(AVG(temperature), 0)
		FROM equipment`).Scan(&count, &avgF, &avgP, &avgT)
	if err != nil {
		return models.SummaryStats{}, fmt.Errorf("%w: summary: %w", ErrFailedToQuery, err)
	}

	rows, err := s.pool.Query(ctx, `SELECT equipment_type, COUNT(*)::int FROM equipment GROUP BY equipment_type`)
	if err != nil {
		return models.SummaryStats{}, fmt.Errorf("%w: distribution: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

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

func (s *PostgresStore) ListEquipment(ctx context.Context) ([]models.EquipmentItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, equipment_name, equipment_type, flowrate, pressure, temperature
		FROM equipment ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: equipment: %w", ErrFailedToQuery, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.EquipmentItem, error) {
		var it models.EquipmentItem
		err := row.Scan(&it.ID, &it.EquipmentName, &it.EquipmentType, &it.Flowrate, &it.Pressure, &it.Temperature)

		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: equipment: %w", ErrFailedToQuery, err)
	}

	return items, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, filename, upload_date, item_count
		FROM upload_sessions ORDER BY upload_date DESC, id DESC LIMIT $1`, MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.HistoryEntry, error) {
		var e models.HistoryEntry
		err := row.Scan(&e.ID, &e.Filename, &e.UploadDate, &e.ItemCount)

		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrFailedToQuery, err)
	}

	return entries, nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE equipment, upload_sessions RESTART IDENTITY`)

	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}
