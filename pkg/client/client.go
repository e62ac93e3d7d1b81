// Package client provides a Go client for the incidentd daemon: a
// realtime websocket session for create/update/query plus thin REST
// helpers for the administrative list/detail/delete surface.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/opswatch/incidentd/pkg/protocol"
)

// Client is a live realtime session with the daemon. Server events,
// including the connect-time snapshot, arrive on Events().
type Client struct {
	ws     *websocket.Conn
	events chan protocol.Envelope

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the daemon's realtime channel. baseURL may use an
// http(s) or ws(s) scheme; the /ws path is appended automatically.
func Dial(ctx context.Context, baseURL string) (*Client, error) {
	wsURL, err := realtimeURL(baseURL)
	if err != nil {
		return nil, err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}

	c := &Client{
		ws:     ws,
		events: make(chan protocol.Envelope, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the stream of server messages. The channel closes when
// the connection drops or Close is called.
func (c *Client) Events() <-chan protocol.Envelope {
	return c.events
}

// Register sets this connection's display identity.
func (c *Client) Register(name string) error {
	return c.send(protocol.KindRegister, protocol.Register{Name: name})
}

// CreateIncident opens a new incident. The result arrives as an
// incident_created broadcast (or an error event on validation failure).
func (c *Client) CreateIncident(title, description, author string) error {
	return c.send(protocol.KindCreateIncident, protocol.CreateIncident{
		Title:       title,
		Description: description,
		Author:      author,
	})
}

// UpdateIncidentState moves an incident to a new state.
func (c *Client) UpdateIncidentState(id int64, newState, actor string) error {
	return c.send(protocol.KindUpdateIncidentState, protocol.UpdateIncidentState{
		ID:       id,
		NewState: newState,
		Actor:    actor,
	})
}

// GetIncident requests one incident; the reply arrives as incident_data.
func (c *Client) GetIncident(id int64) error {
	return c.send(protocol.KindGetIncident, protocol.GetIncident{ID: id})
}

// GetAllIncidents requests a fresh snapshot addressed to this connection.
func (c *Client) GetAllIncidents() error {
	return c.send(protocol.KindGetAllIncidents, nil)
}

// Close shuts the session down.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

func (c *Client) send(kind protocol.Kind, payload interface{}) error {
	env, err := protocol.NewEnvelope(kind, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var env protocol.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.Close()
			return
		}
		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

// realtimeURL normalizes a base URL to the ws(s) scheme with the /ws path.
func realtimeURL(baseURL string) (string, error) {
	// Bare host:port addresses parse with the host as scheme, so default
	// the scheme before parsing.
	if !strings.Contains(baseURL, "://") {
		baseURL = "ws://" + baseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid daemon URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
