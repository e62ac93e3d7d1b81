package server

import (
	"net/http"
	"strconv"

	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/pkg/models"
)

// listResponse is the REST listing body. Tenant scoping is informational:
// the store is process-wide and the field just echoes the caller's scope.
type listResponse struct {
	TenantID string             `json:"tenant_id"`
	Items    []*models.Incident `json:"items"`
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant_id")
	if tenant == "" {
		tenant = s.cfg.Server.Tenant
	}

	s.writeJSON(w, http.StatusOK, listResponse{
		TenantID: tenant,
		Items:    s.store.List(),
	})
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	inc, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inc)
}

// handleDeleteIncident removes an incident and pushes the same broadcast
// side effects as a realtime mutation, so connected clients drop the
// entity without polling.
func (s *Server) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	removed, err := s.store.Delete(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.WithField("id", id).Info("Incident deleted via REST")
	s.bus.IncidentDeleted(removed)

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "id must be an integer").WithDetail("id", raw)
	}
	return id, nil
}
