package server

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezivnuska/pokertable/pkg/engine"
	"github.com/ezivnuska/pokertable/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "server.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := engine.DefaultConfig()
	cfg.Seed = 7
	cfg.ThinkDelay = 0

	hub := NewHub(nil)
	eng := engine.New(st, hub, nil, cfg)
	srv := New(eng, hub, nil, "127.0.0.1:0", time.Hour)
	go hub.Run()

	ts := httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if playerID != "" {
		url += "?playerId=" + playerID
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func send(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestWelcomeAssignsGuestIdentity(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "")

	env := readEnvelope(t, conn)
	assert.Equal(t, "welcome", env.Event)

	payload, ok := env.Payload.(map[string]interface{})
	require.True(t, ok)
	id, _ := payload["playerId"].(string)
	assert.True(t, strings.HasPrefix(id, "guest:"), "got identity %q", id)
}

func TestJoinBroadcastsEvents(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "alice")

	env := readEnvelope(t, conn)
	require.Equal(t, "welcome", env.Event)

	send(t, conn, Command{Type: "join", Username: "alice"})

	env = readEnvelope(t, conn)
	assert.Equal(t, string(engine.EventPlayerJoined), env.Event)

	env = readEnvelope(t, conn)
	assert.Equal(t, string(engine.EventGameState), env.Event)
	assert.Equal(t, "lobby", env.Table)
}

func TestStateRequestReturnsSnapshot(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "alice")
	readEnvelope(t, conn) // welcome

	send(t, conn, Command{Type: "join", Username: "alice"})
	readEnvelope(t, conn) // player_joined
	readEnvelope(t, conn) // game_state broadcast

	send(t, conn, Command{Type: "state"})
	env := readEnvelope(t, conn)
	assert.Equal(t, string(engine.EventGameState), env.Event)

	payload, ok := env.Payload.(map[string]interface{})
	require.True(t, ok)
	players, ok := payload["players"].([]interface{})
	require.True(t, ok)
	assert.Len(t, players, 1)
	// The deck never leaves the server.
	assert.Nil(t, payload["deck"])
}

func TestRuleViolationReturnsError(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "alice")
	readEnvelope(t, conn) // welcome

	// Locking an empty table breaks the two-player rule.
	send(t, conn, Command{Type: "lock"})
	env := readEnvelope(t, conn)
	assert.Equal(t, "error", env.Event)
}

func TestMalformedCommandReturnsError(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "alice")
	readEnvelope(t, conn) // welcome

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	env := readEnvelope(t, conn)
	assert.Equal(t, "error", env.Event)
}

func TestUnknownCommandReturnsError(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "alice")
	readEnvelope(t, conn) // welcome

	send(t, conn, Command{Type: "shuffle"})
	env := readEnvelope(t, conn)
	assert.Equal(t, "error", env.Event)
}
