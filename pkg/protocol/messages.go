// Package protocol defines the JSON wire messages exchanged over the
// realtime channel. Both the daemon and the Go client decode to these
// types, so the message kinds live here rather than in either side.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/opswatch/incidentd/pkg/models"
)

// Kind identifies a message on the wire.
type Kind string

// Client → server kinds.
const (
	KindRegister            Kind = "register"
	KindCreateIncident      Kind = "create_incident"
	KindUpdateIncidentState Kind = "update_incident_state"
	KindGetIncident         Kind = "get_incident"
	KindGetAllIncidents     Kind = "get_all_incidents"
)

// Server → client kinds.
const (
	KindIncidentsSnapshot Kind = "incidents_snapshot"
	KindIncidentCreated   Kind = "incident_created"
	KindIncidentUpdated   Kind = "incident_updated"
	KindIncidentDeleted   Kind = "incident_deleted"
	KindIncidentData      Kind = "incident_data"
	KindNotification      Kind = "notification"
	KindError             Kind = "error"
)

// Envelope wraps every message with its kind. The payload stays raw until
// the dispatch table picks the concrete type to decode into.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload and wraps it with the given kind.
func NewEnvelope(kind Kind, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Kind: kind}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return Envelope{Kind: kind, Payload: data}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Kind)
	}
	return json.Unmarshal(e.Payload, v)
}

// Register sets an optional display identity on the connection. Identity is
// informational only; multiple connections may share a name.
type Register struct {
	Name string `json:"name"`
}

// CreateIncident opens a new incident. Author may be empty.
type CreateIncident struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author,omitempty"`
}

// UpdateIncidentState moves an incident to a new lifecycle state.
type UpdateIncidentState struct {
	ID       int64  `json:"id"`
	NewState string `json:"new_state"`
	Actor    string `json:"actor,omitempty"`
}

// GetIncident requests a single incident by id.
type GetIncident struct {
	ID int64 `json:"id"`
}

// Snapshot carries the full incident list.
type Snapshot struct {
	Items []*models.Incident `json:"items"`
}

// IncidentEvent carries a single incident for created/updated/data messages.
type IncidentEvent struct {
	Incident *models.Incident `json:"incident"`
}

// IncidentDeleted announces a removal; the incident no longer exists, so
// only its id travels.
type IncidentDeleted struct {
	ID int64 `json:"id"`
}

// Notification kinds.
const (
	NotifyIncidentCreated = "incident_created"
	NotifyStateChanged    = "state_changed"
	NotifyIncidentDeleted = "incident_deleted"
)

// Notification is the human-readable change feed used for toasts/alerts.
type Notification struct {
	Kind          string           `json:"kind"`
	Message       string           `json:"message"`
	Incident      *models.Incident `json:"incident,omitempty"`
	PreviousState string           `json:"previous_state,omitempty"`
	NewState      string           `json:"new_state,omitempty"`
}

// Error is addressed only to the connection whose message failed.
type Error struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
