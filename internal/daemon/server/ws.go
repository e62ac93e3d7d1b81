package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/pkg/protocol"
)

// sendBufferSize is the number of outbound messages queued per connection
// before the daemon gives up on a slow consumer.
const sendBufferSize = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser front ends are served from other origins and no auth
	// exists at this layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var connCounter atomic.Int64

// wsConn adapts a websocket session to hub.Conn. Outbound messages go
// through a buffered channel drained by a single writer goroutine, so a
// stalled socket never blocks the bus or the other connections.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan protocol.Envelope

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:   fmt.Sprintf("%s#%d", ws.RemoteAddr(), connCounter.Add(1)),
		ws:   ws,
		send: make(chan protocol.Envelope, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection's opaque handle.
func (c *wsConn) ID() string { return c.id }

// Send queues an envelope without blocking. A full buffer means the
// consumer has stalled; the error tells the bus to drop the connection.
func (c *wsConn) Send(env protocol.Envelope) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection closed")
	default:
	}

	select {
	case c.send <- env:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Close tears down the websocket. Safe to call more than once.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

// writePump drains the send queue onto the socket.
func (c *wsConn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.send:
			if err := c.ws.WriteJSON(env); err != nil {
				// Reads will fail too; the read loop handles cleanup.
				c.Close()
				return
			}
		}
	}
}

// handleWebSocket upgrades the request and runs the connection's read loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	conn := newWSConn(ws)
	go conn.writePump()

	// Baseline snapshot first, then registration; the bus serializes
	// both against broadcasts so no mutation event can jump the queue.
	s.bus.Subscribe(conn)
	s.logger.WithField("conn", conn.ID()).Info("Client connected")

	s.readLoop(conn)

	s.registry.Remove(conn)
	conn.Close()
	s.logger.WithField("conn", conn.ID()).Info("Client disconnected")
}

// readLoop decodes inbound envelopes and dispatches them until the
// connection drops. Handler and decode errors go back to this connection
// only; they never tear the session down. Only transport errors end the
// loop.
func (s *Server) readLoop(conn *wsConn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithField("conn", conn.ID()).WithError(err).Debug("Read failed")
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError(conn, errors.Wrap(err, errors.ErrCodeInvalidInput, "malformed message"))
			continue
		}

		if err := s.dispatch(conn, env); err != nil {
			s.sendError(conn, err)
		}
	}
}

// sendError addresses an error envelope to the originating connection.
func (s *Server) sendError(conn *wsConn, err error) {
	payload := protocol.Error{
		Code:    string(errors.GetCode(err)),
		Message: err.Error(),
	}
	if incErr, ok := err.(*errors.IncidentError); ok {
		payload.Message = incErr.Message
	}
	env, buildErr := protocol.NewEnvelope(protocol.KindError, payload)
	if buildErr != nil {
		s.logger.WithError(buildErr).Error("Failed to build error envelope")
		return
	}
	if sendErr := conn.Send(env); sendErr != nil {
		s.logger.WithField("conn", conn.ID()).WithError(sendErr).Warn("Failed to deliver error")
	}
}
