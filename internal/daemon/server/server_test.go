package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswatch/incidentd/config"
	"github.com/opswatch/incidentd/internal/daemon/hub"
	"github.com/opswatch/incidentd/internal/daemon/store"
	"github.com/opswatch/incidentd/pkg/models"
	"github.com/opswatch/incidentd/pkg/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	entry := logrus.NewEntry(logger)

	cfg := &config.Config{}
	cfg.SetDefaults()

	st := store.New()
	registry := hub.NewRegistry()
	bus := hub.NewBus(registry, st, entry)
	srv := New(entry, cfg, st, registry, bus)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEnvelope(t *testing.T, ws *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env protocol.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func sendEnvelope(t *testing.T, ws *websocket.Conn, kind protocol.Kind, payload interface{}) {
	t.Helper()
	env, err := protocol.NewEnvelope(kind, payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(env))
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConnectReceivesSingleSnapshot(t *testing.T) {
	srv, ts := newTestServer(t)
	_, err := srv.store.Create("Existing", "created before connect", "ana")
	require.NoError(t, err)

	ws := dialWS(t, ts)
	env := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentsSnapshot, env.Kind)

	var snap protocol.Snapshot
	require.NoError(t, env.Decode(&snap))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Existing", snap.Items[0].Title)
}

func TestCreateBroadcastsToAllClients(t *testing.T) {
	_, ts := newTestServer(t)

	a := dialWS(t, ts)
	b := dialWS(t, ts)
	readEnvelope(t, a) // initial snapshots
	readEnvelope(t, b)

	sendEnvelope(t, a, protocol.KindCreateIncident, protocol.CreateIncident{
		Title:       "Robo",
		Description: "Robo en biblioteca",
		Author:      "juan",
	})

	for _, ws := range []*websocket.Conn{a, b} {
		created := readEnvelope(t, ws)
		require.Equal(t, protocol.KindIncidentCreated, created.Kind)

		var event protocol.IncidentEvent
		require.NoError(t, created.Decode(&event))
		assert.Equal(t, int64(1), event.Incident.ID)
		assert.Equal(t, models.StatePending, event.Incident.State)
		assert.Equal(t, "juan", event.Incident.Author)

		snapshot := readEnvelope(t, ws)
		require.Equal(t, protocol.KindIncidentsSnapshot, snapshot.Kind)
		var snap protocol.Snapshot
		require.NoError(t, snapshot.Decode(&snap))
		require.Len(t, snap.Items, 1)

		note := readEnvelope(t, ws)
		require.Equal(t, protocol.KindNotification, note.Kind)
		var notification protocol.Notification
		require.NoError(t, note.Decode(&notification))
		assert.Equal(t, protocol.NotifyIncidentCreated, notification.Kind)
	}
}

func TestCreateValidationErrorOnlyToOriginator(t *testing.T) {
	_, ts := newTestServer(t)

	a := dialWS(t, ts)
	b := dialWS(t, ts)
	readEnvelope(t, a)
	readEnvelope(t, b)

	sendEnvelope(t, a, protocol.KindCreateIncident, protocol.CreateIncident{Title: "", Description: "no title"})

	errEnv := readEnvelope(t, a)
	require.Equal(t, protocol.KindError, errEnv.Kind)
	var wsErr protocol.Error
	require.NoError(t, errEnv.Decode(&wsErr))
	assert.Equal(t, "VALIDATION", wsErr.Code)

	// b sees nothing for the failed create; the next thing it receives is
	// the broadcast for a subsequent valid create.
	sendEnvelope(t, a, protocol.KindCreateIncident, protocol.CreateIncident{Title: "Valid", Description: "ok"})
	next := readEnvelope(t, b)
	assert.Equal(t, protocol.KindIncidentCreated, next.Kind)
}

func TestUnknownKindReturnsError(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	sendEnvelope(t, ws, protocol.Kind("bogus"), map[string]string{"x": "y"})

	env := readEnvelope(t, ws)
	require.Equal(t, protocol.KindError, env.Kind)
	var wsErr protocol.Error
	require.NoError(t, env.Decode(&wsErr))
	assert.Equal(t, "INVALID_INPUT", wsErr.Code)
}

func TestMalformedFrameKeepsSessionAlive(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))

	env := readEnvelope(t, ws)
	require.Equal(t, protocol.KindError, env.Kind)
	var wsErr protocol.Error
	require.NoError(t, env.Decode(&wsErr))
	assert.Equal(t, "INVALID_INPUT", wsErr.Code)

	// The connection survives and keeps serving requests
	sendEnvelope(t, ws, protocol.KindGetAllIncidents, struct{}{})
	env = readEnvelope(t, ws)
	assert.Equal(t, protocol.KindIncidentsSnapshot, env.Kind)
}

func TestUpdateStateUsesRegisteredIdentity(t *testing.T) {
	srv, ts := newTestServer(t)
	created, err := srv.store.Create("Flood", "Water in the server room", "")
	require.NoError(t, err)

	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	sendEnvelope(t, ws, protocol.KindRegister, protocol.Register{Name: "admin"})
	sendEnvelope(t, ws, protocol.KindUpdateIncidentState, protocol.UpdateIncidentState{
		ID:       created.ID,
		NewState: "in_progress",
	})

	updated := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentUpdated, updated.Kind)
	var event protocol.IncidentEvent
	require.NoError(t, updated.Decode(&event))
	assert.Equal(t, models.StateInProgress, event.Incident.State)
	assert.Equal(t, "admin", event.Incident.LastModifier)
}

func TestUpdateStateErrors(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	// Unknown id
	sendEnvelope(t, ws, protocol.KindUpdateIncidentState, protocol.UpdateIncidentState{ID: 99, NewState: "resolved"})
	env := readEnvelope(t, ws)
	require.Equal(t, protocol.KindError, env.Kind)
	var wsErr protocol.Error
	require.NoError(t, env.Decode(&wsErr))
	assert.Equal(t, "NOT_FOUND", wsErr.Code)
}

func TestGetIncidentAnswersOnlyRequester(t *testing.T) {
	srv, ts := newTestServer(t)
	created, err := srv.store.Create("Leak", "Gas smell near lab", "ana")
	require.NoError(t, err)

	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	sendEnvelope(t, ws, protocol.KindGetIncident, protocol.GetIncident{ID: created.ID})

	env := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentData, env.Kind)
	var event protocol.IncidentEvent
	require.NoError(t, env.Decode(&event))
	assert.Equal(t, "Leak", event.Incident.Title)
}

func TestGetAllIncidents(t *testing.T) {
	srv, ts := newTestServer(t)
	for i := 0; i < 3; i++ {
		_, err := srv.store.Create(fmt.Sprintf("Incident %d", i), "description", "")
		require.NoError(t, err)
	}

	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	sendEnvelope(t, ws, protocol.KindGetAllIncidents, nil)
	env := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentsSnapshot, env.Kind)
	var snap protocol.Snapshot
	require.NoError(t, env.Decode(&snap))
	assert.Len(t, snap.Items, 3)
}

func TestRESTList(t *testing.T) {
	srv, ts := newTestServer(t)
	_, err := srv.store.Create("Robo", "Robo en biblioteca", "juan")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/incidents")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body listResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "utec", body.TenantID)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Robo", body.Items[0].Title)
}

func TestRESTListTenantScope(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/incidents?tenant_id=acme")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body listResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "acme", body.TenantID)
}

func TestRESTDetail(t *testing.T) {
	srv, ts := newTestServer(t)
	created, err := srv.store.Create("Robo", "Robo en biblioteca", "juan")
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/api/incidents/%d", ts.URL, created.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var inc models.Incident
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&inc))
	assert.Equal(t, created.ID, inc.ID)

	// Unknown id → 404
	resp404, err := http.Get(ts.URL + "/api/incidents/999")
	require.NoError(t, err)
	defer resp404.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp404.StatusCode)

	// Non-numeric id → 400
	resp400, err := http.Get(ts.URL + "/api/incidents/abc")
	require.NoError(t, err)
	defer resp400.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp400.StatusCode)
}

func TestRESTDeleteBroadcastsToRealtimeClients(t *testing.T) {
	srv, ts := newTestServer(t)
	created, err := srv.store.Create("Robo", "Robo en biblioteca", "juan")
	require.NoError(t, err)

	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/incidents/%d", ts.URL, created.ID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The realtime client observes the deletion without polling.
	deleted := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentDeleted, deleted.Kind)
	var del protocol.IncidentDeleted
	require.NoError(t, deleted.Decode(&del))
	assert.Equal(t, created.ID, del.ID)

	snapshot := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentsSnapshot, snapshot.Kind)
	var snap protocol.Snapshot
	require.NoError(t, snapshot.Decode(&snap))
	assert.Empty(t, snap.Items)

	note := readEnvelope(t, ws)
	require.Equal(t, protocol.KindNotification, note.Kind)

	assert.Equal(t, 0, srv.store.Len())
}

func TestRESTDeleteUnknownID(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/incidents/5", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIncidentLifecycleScenario(t *testing.T) {
	srv, ts := newTestServer(t)
	ws := dialWS(t, ts)
	readEnvelope(t, ws)

	// Create
	sendEnvelope(t, ws, protocol.KindCreateIncident, protocol.CreateIncident{
		Title:       "Robo",
		Description: "Robo en biblioteca",
		Author:      "juan",
	})
	created := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentCreated, created.Kind)
	var event protocol.IncidentEvent
	require.NoError(t, created.Decode(&event))
	assert.Equal(t, int64(1), event.Incident.ID)
	assert.Equal(t, models.StatePending, event.Incident.State)
	readEnvelope(t, ws) // snapshot
	readEnvelope(t, ws) // notification

	// Update using the legacy state alias
	sendEnvelope(t, ws, protocol.KindUpdateIncidentState, protocol.UpdateIncidentState{
		ID:       1,
		NewState: "resuelto",
		Actor:    "admin",
	})
	updated := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentUpdated, updated.Kind)
	require.NoError(t, updated.Decode(&event))
	assert.Equal(t, models.StateResolved, event.Incident.State)
	assert.Equal(t, "admin", event.Incident.LastModifier)
	assert.True(t, event.Incident.UpdatedAt.After(event.Incident.CreatedAt))
	readEnvelope(t, ws) // snapshot
	readEnvelope(t, ws) // notification

	// Delete via REST
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/incidents/1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	deleted := readEnvelope(t, ws)
	require.Equal(t, protocol.KindIncidentDeleted, deleted.Kind)
	snapshot := readEnvelope(t, ws)
	var snap protocol.Snapshot
	require.NoError(t, snapshot.Decode(&snap))
	assert.Empty(t, snap.Items)
	assert.Empty(t, srv.store.List())
}
