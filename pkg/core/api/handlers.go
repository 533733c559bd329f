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
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/carverauto/chemvis/pkg/ingest"
	"github.com/carverauto/chemvis/pkg/models"
	"github.com/carverauto/chemvis/pkg/report"
)

func (s *APIServer) uploadCSV(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.Uploads.WithLabelValues("rejected").Inc()

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeUploadError(w, fmt.Sprintf("File exceeds %d bytes.", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}

		writeUploadError(w, msgNoFile, http.StatusBadRequest)

		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)

	items, err := ingest.ParseCSVStrict(file)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("rejected").Inc()
		s.logger.Info().Err(err).Str("filename", filename).Msg("Rejected CSV upload")
		writeUploadError(w, err.Error(), http.StatusBadRequest)

		return
	}

	entry, err := s.store.CreateUpload(r.Context(), filename, items)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("filename", filename).Msg("Failed to store upload")
		writeError(w, "Failed to store upload", http.StatusInternalServerError)

		return
	}

	s.metrics.Uploads.WithLabelValues("stored").Inc()
	s.metrics.UploadedItems.Add(float64(len(items)))
	s.metrics.UploadDuration.Observe(time.Since(start).Seconds())

	s.logger.Info().
		Int64("session_id", entry.ID).
		Str("filename", filename).
		Int("items", len(items)).
		Msg("Stored CSV upload")

	s.notify(r.Context(), entry)

	s.writeJSON(w, http.StatusCreated, models.UploadResult{
		Success: true,
		Message: fmt.Sprintf("Processed %d items", len(items)),
	})
}

// notify publishes through the event bus when one is configured, falling
// back to the local hub if publishing fails.
func (s *APIServer) notify(ctx context.Context, entry models.HistoryEntry) {
	if s.events != nil {
		err := s.events.PublishDataUpdated(ctx, entry)
		if err == nil {
			return
		}

		s.logger.Warn().Err(err).Msg("Event publish failed, broadcasting locally")
	}

	s.hub.Broadcast(models.DataUpdateMessage{Message: models.DataUpdated})
}

func (s *APIServer) getSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Summary(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load summary")
		writeError(w, "Failed to load summary", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *APIServer) getEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListEquipment(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list equipment")
		writeError(w, "Failed to list equipment", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, items)
}

func (s *APIServer) getHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.ListHistory(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list history")
		writeError(w, "Failed to list history", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, history)
}

func (s *APIServer) getReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.store.Summary(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load report summary")
		writeError(w, "Failed to generate report", http.StatusInternalServerError)

		return
	}

	if stats.TotalEquipment == 0 {
		writeUploadError(w, msgNoReportData, http.StatusNotFound)
		return
	}

	items, err := s.store.ListEquipment(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load report equipment")
		writeError(w, "Failed to generate report", http.StatusInternalServerError)

		return
	}

	history, err := s.store.ListHistory(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load report history")
		writeError(w, "Failed to generate report", http.StatusInternalServerError)

		return
	}

	now := s.now()

	body, err := report.HTML(&report.Data{
		Generated: now,
		Summary:   stats,
		Equipment: items,
		History:   history,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to render report")
		writeError(w, "Failed to generate report", http.StatusInternalServerError)

		return
	}

	s.metrics.ReportsRendered.Inc()

	w.Header().Set("Content-Type", report.ContentTypeHTML)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="Industrial_Report_%s.html"`, now.Format("20060102")))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(body); err != nil {
		s.logger.Debug().Err(err).Msg("Report write interrupted")
	}
}
