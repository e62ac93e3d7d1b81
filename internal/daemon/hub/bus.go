package hub

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opswatch/incidentd/internal/daemon/store"
	"github.com/opswatch/incidentd/pkg/models"
	"github.com/opswatch/incidentd/pkg/protocol"
)

// Bus turns accepted store mutations into outbound events and delivers
// them to every registered connection. For each mutation a connection
// receives, in order: the mutation-specific event, a full snapshot taken
// right after the mutation, and a human-readable notification. The
// snapshot re-broadcast after every delta is deliberate: clients that
// missed an earlier message reconcile from the latest snapshot instead of
// relying on deltas alone.
//
// Delivery is best-effort. The mutation committed before fan-out starts,
// so a failed send never rolls anything back; the dead connection is
// dropped and the remaining ones still get their messages.
type Bus struct {
	registry *Registry
	store    *store.Store
	logger   *logrus.Entry

	// mu serializes Subscribe against broadcast. A connection joining
	// mid-broadcast either misses the whole sequence (its baseline
	// snapshot already reflects the mutation) or receives it after the
	// snapshot; the snapshot is always the first message queued.
	mu sync.Mutex
}

// NewBus creates a Bus over the given registry and store.
func NewBus(registry *Registry, st *store.Store, logger *logrus.Entry) *Bus {
	return &Bus{registry: registry, store: st, logger: logger}
}

// Subscribe queues the current snapshot on a newly connected client and
// then registers it for broadcasts. The two steps happen atomically with
// respect to broadcast, so the client starts from a consistent baseline
// before any mutation event reaches it.
func (b *Bus) Subscribe(c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := protocol.NewEnvelope(protocol.KindIncidentsSnapshot, protocol.Snapshot{Items: b.store.List()})
	if err != nil {
		b.logger.WithError(err).Error("Failed to build snapshot")
		return
	}
	if b.deliver(c, env) {
		b.registry.Add(c)
	}
}

// IncidentCreated broadcasts a creation.
func (b *Bus) IncidentCreated(inc *models.Incident) {
	b.broadcast(
		protocol.KindIncidentCreated, protocol.IncidentEvent{Incident: inc},
		protocol.Notification{
			Kind:     protocol.NotifyIncidentCreated,
			Message:  fmt.Sprintf("New incident created: %q", inc.Title),
			Incident: inc,
		},
	)
}

// IncidentUpdated broadcasts a state change.
func (b *Bus) IncidentUpdated(inc *models.Incident, previous models.State) {
	b.broadcast(
		protocol.KindIncidentUpdated, protocol.IncidentEvent{Incident: inc},
		protocol.Notification{
			Kind:          protocol.NotifyStateChanged,
			Message:       fmt.Sprintf("Incident %q changed from %q to %q", inc.Title, previous, inc.State),
			Incident:      inc,
			PreviousState: string(previous),
			NewState:      string(inc.State),
		},
	)
}

// IncidentDeleted broadcasts a removal. Realtime clients drop the entity
// on the removal notice and the refreshed snapshot confirms it.
func (b *Bus) IncidentDeleted(inc *models.Incident) {
	b.broadcast(
		protocol.KindIncidentDeleted, protocol.IncidentDeleted{ID: inc.ID},
		protocol.Notification{
			Kind:     protocol.NotifyIncidentDeleted,
			Message:  fmt.Sprintf("Incident %q was deleted", inc.Title),
			Incident: inc,
		},
	)
}

// broadcast builds the fixed three-message sequence and queues it on every
// live connection. The snapshot is taken once, here, so every connection
// sees the same post-mutation list.
func (b *Bus) broadcast(kind protocol.Kind, event interface{}, note protocol.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	eventEnv, err := protocol.NewEnvelope(kind, event)
	if err != nil {
		b.logger.WithError(err).WithField("kind", kind).Error("Failed to build event")
		return
	}
	snapshotEnv, err := protocol.NewEnvelope(protocol.KindIncidentsSnapshot, protocol.Snapshot{Items: b.store.List()})
	if err != nil {
		b.logger.WithError(err).Error("Failed to build snapshot")
		return
	}
	noteEnv, err := protocol.NewEnvelope(protocol.KindNotification, note)
	if err != nil {
		b.logger.WithError(err).Error("Failed to build notification")
		return
	}

	for _, c := range b.registry.All() {
		b.deliver(c, eventEnv, snapshotEnv, noteEnv)
	}
}

// deliver queues envelopes on one connection, in order. On the first
// failure the connection is dropped from the registry and closed; the
// error is logged and swallowed, never retried.
func (b *Bus) deliver(c Conn, envs ...protocol.Envelope) bool {
	for _, env := range envs {
		if err := c.Send(env); err != nil {
			b.logger.WithField("conn", c.ID()).WithError(err).Warn("Dropping connection after failed delivery")
			b.registry.Remove(c)
			_ = c.Close()
			return false
		}
	}
	return true
}
