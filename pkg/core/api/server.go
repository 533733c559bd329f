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

// Package api provides the HTTP API server for ChemVis
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carverauto/chemvis/pkg/auth"
	"github.com/carverauto/chemvis/pkg/db"
	cvHttp "github.com/carverauto/chemvis/pkg/http"
	"github.com/carverauto/chemvis/pkg/logger"
	"github.com/carverauto/chemvis/pkg/models"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// APIServer serves the equipment API, change notifications and metrics.
type APIServer struct {
	router     *mux.Router
	handler    http.Handler
	corsConfig models.CORSConfig
	store      db.Store
	auth       auth.Provider
	events     EventPublisher
	hub        *Hub
	metrics    *Metrics
	registry   *prometheus.Registry
	logger     logger.Logger
	now        func() time.Time
	maxUpload  int64
}

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) (*APIServer, error) {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		logger:     logger.NewTestLogger(),
		now:        time.Now,
		maxUpload:  defaultMaxUpload,
	}

	for _, o := range options {
		o(s)
	}

	if s.store == nil {
		return nil, errNoStore
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	s.metrics = NewMetrics(s.registry)
	s.hub = NewHub(s.logger, s.metrics, s.checkWebSocketOrigin)

	s.setupRoutes()

	return s, nil
}

// WithStore sets the session store.
func WithStore(store db.Store) func(server *APIServer) {
	return func(server *APIServer) {
		server.store = store
	}
}

// WithAuthProvider protects the API with Basic auth. Without it the API is open.
func WithAuthProvider(p auth.Provider) func(server *APIServer) {
	return func(server *APIServer) {
		server.auth = p
	}
}

// WithEventPublisher routes change notifications through an event bus
// instead of the local hub.
func WithEventPublisher(p EventPublisher) func(server *APIServer) {
	return func(server *APIServer) {
		server.events = p
	}
}

func WithLogger(log logger.Logger) func(server *APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

func WithRegistry(reg *prometheus.Registry) func(server *APIServer) {
	return func(server *APIServer) {
		server.registry = reg
	}
}

func WithClock(now func() time.Time) func(server *APIServer) {
	return func(server *APIServer) {
		server.now = now
	}
}

// Hub exposes the websocket hub so event subscribers can broadcast into it.
func (s *APIServer) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wrapped HTTP handler.
func (s *APIServer) Handler() http.Handler {
	return s.handler
}

func (s *APIServer) setupRoutes() {
	s.router.StrictSlash(true)

	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	protected := s.router.NewRoute().Subrouter()
	if s.auth != nil {
		protected.Use(cvHttp.BasicAuthMiddlewareWithOptions(cvHttp.BasicAuthOptions{
			Provider:        s.auth,
			LogUnauthorized: true,
			Logger:          s.logger,
		}))
	}

	protected.Handle("/ws/updates/", s.hub).Methods(http.MethodGet)

	api := protected.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload/", s.uploadCSV).Methods(http.MethodPost)
	api.HandleFunc("/summary/", s.getSummary).Methods(http.MethodGet)
	api.HandleFunc("/equipment/", s.getEquipment).Methods(http.MethodGet)
	api.HandleFunc("/history/", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/report/", s.getReport).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests never reach route matching.
	s.handler = cvHttp.RequestLogger(s.logger)(cvHttp.CommonMiddleware(s.router, s.corsConfig, s.logger))
}

func (s *APIServer) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range s.corsConfig.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	s.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket origin")

	return false
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down API server")

	return srv.Shutdown(shutdownCtx)
}

func (s *APIServer) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// writeUploadError writes the {"error": ...} body the dashboard clients expect.
func writeUploadError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(models.UploadErrorResponse{Error: message})
}
