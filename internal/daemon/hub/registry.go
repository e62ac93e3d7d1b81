// Package hub tracks live client connections and fans out store changes
// to all of them.
package hub

import (
	"sync"

	"github.com/opswatch/incidentd/pkg/protocol"
)

// Conn is a live client session capable of receiving broadcast events.
// Send must not block: implementations queue outbound messages so one
// stalled client cannot hold up delivery to the others.
type Conn interface {
	// ID returns an opaque per-connection handle, used only for logging.
	ID() string
	// Send queues an envelope for delivery. It returns an error once the
	// connection can no longer accept messages.
	Send(env protocol.Envelope) error
	// Close tears down the underlying transport.
	Close() error
}

// Registry tracks currently connected clients and their optional display
// identity. Identity is informational only and never unique: several
// clients may register under the same name.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]string)}
}

// Add registers a connection. Adding the same connection twice is a no-op.
func (r *Registry) Add(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		r.conns[c] = ""
	}
}

// Remove drops a connection. It is idempotent: duplicate disconnect
// signals for the same connection are tolerated.
func (r *Registry) Remove(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

// SetIdentity records a display name for the connection. Unknown
// connections are ignored.
func (r *Registry) SetIdentity(c Conn, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; ok {
		r.conns[c] = name
	}
}

// Identity returns the registered name for a connection, or "".
func (r *Registry) Identity(c Conn) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[c]
}

// All returns a snapshot of the current members, safe to iterate while
// connections come and go.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		result = append(result, c)
	}
	return result
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
