// Package server provides the HTTP server for the incidentd daemon. It
// bridges two entry points into the same store and bus: the realtime
// websocket channel at /ws and the REST surface under /api, so
// administrative deletes reach realtime clients and realtime creations
// show up in administrative listings.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/opswatch/incidentd/config"
	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/internal/daemon/hub"
	"github.com/opswatch/incidentd/internal/daemon/store"
)

// Server manages the daemon's HTTP server.
type Server struct {
	logger   *logrus.Entry
	cfg      *config.Config
	store    *store.Store
	registry *hub.Registry
	bus      *hub.Bus
	server   *http.Server
}

// New creates a new Server instance over the shared store, registry and bus.
func New(logger *logrus.Entry, cfg *config.Config, st *store.Store, registry *hub.Registry, bus *hub.Bus) *Server {
	return &Server{
		logger:   logger,
		cfg:      cfg,
		store:    st,
		registry: registry,
		bus:      bus,
	}
}

// Handler builds the daemon's HTTP routes. Exposed so tests can drive the
// server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/incidents", s.handleListIncidents)
	mux.HandleFunc("GET /api/incidents/{id}", s.handleGetIncident)
	mux.HandleFunc("DELETE /api/incidents/{id}", s.handleDeleteIncident)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe starts the daemon on the configured TCP address.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to listen")
	}

	s.server = &http.Server{Handler: s.Handler()}

	s.logger.WithField("addr", s.cfg.Server.Listen).Info("Daemon listening")
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps structured error codes onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeValidation, errors.ErrCodeInvalidState, errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	}

	message := err.Error()
	if incErr, ok := err.(*errors.IncidentError); ok {
		message = incErr.Message
	}
	s.writeJSON(w, status, map[string]string{"error": message})
}
