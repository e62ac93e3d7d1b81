package server

import (
	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/pkg/protocol"
)

// wsHandler processes one inbound message for one connection. A returned
// error becomes an error envelope addressed to that connection only.
type wsHandler func(s *Server, conn *wsConn, env protocol.Envelope) error

// wsHandlers is the dispatch table for inbound message kinds.
var wsHandlers = map[protocol.Kind]wsHandler{
	protocol.KindRegister:            handleRegister,
	protocol.KindCreateIncident:      handleCreateIncident,
	protocol.KindUpdateIncidentState: handleUpdateIncidentState,
	protocol.KindGetIncident:         handleGetIncidentWS,
	protocol.KindGetAllIncidents:     handleGetAllIncidents,
}

// dispatch routes an envelope through the handler table.
func (s *Server) dispatch(conn *wsConn, env protocol.Envelope) error {
	handler, ok := wsHandlers[env.Kind]
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown message kind").
			WithDetail("kind", string(env.Kind))
	}
	return handler(s, conn, env)
}

func handleRegister(s *Server, conn *wsConn, env protocol.Envelope) error {
	var payload protocol.Register
	if err := env.Decode(&payload); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed register payload")
	}

	s.registry.SetIdentity(conn, payload.Name)
	s.logger.WithField("conn", conn.ID()).WithField("name", payload.Name).Info("Client registered")
	return nil
}

func handleCreateIncident(s *Server, conn *wsConn, env protocol.Envelope) error {
	var payload protocol.CreateIncident
	if err := env.Decode(&payload); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed create_incident payload")
	}

	inc, err := s.store.Create(payload.Title, payload.Description, payload.Author)
	if err != nil {
		return err
	}

	s.logger.WithField("id", inc.ID).WithField("title", inc.Title).Info("Incident created")
	s.bus.IncidentCreated(inc)
	return nil
}

func handleUpdateIncidentState(s *Server, conn *wsConn, env protocol.Envelope) error {
	var payload protocol.UpdateIncidentState
	if err := env.Decode(&payload); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed update_incident_state payload")
	}

	// When the payload names no actor, fall back to the connection's
	// registered identity.
	actor := payload.Actor
	if actor == "" {
		actor = s.registry.Identity(conn)
	}

	inc, previous, err := s.store.UpdateState(payload.ID, payload.NewState, actor)
	if err != nil {
		return err
	}

	s.logger.WithField("id", inc.ID).
		WithField("from", previous).
		WithField("to", inc.State).
		Info("Incident updated")
	s.bus.IncidentUpdated(inc, previous)
	return nil
}

// handleGetIncidentWS answers only the asking connection; reads are never
// broadcast.
func handleGetIncidentWS(s *Server, conn *wsConn, env protocol.Envelope) error {
	var payload protocol.GetIncident
	if err := env.Decode(&payload); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed get_incident payload")
	}

	inc, err := s.store.Get(payload.ID)
	if err != nil {
		return err
	}

	reply, err := protocol.NewEnvelope(protocol.KindIncidentData, protocol.IncidentEvent{Incident: inc})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build reply")
	}
	return conn.Send(reply)
}

func handleGetAllIncidents(s *Server, conn *wsConn, env protocol.Envelope) error {
	reply, err := protocol.NewEnvelope(protocol.KindIncidentsSnapshot, protocol.Snapshot{Items: s.store.List()})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build snapshot")
	}
	return conn.Send(reply)
}
