package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/api/middleware"
	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/engine"
	"github.com/tallyhq/tally/internal/session"
	"github.com/tallyhq/tally/internal/wire"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]engine.State
}

func (s *memStore) LoadState(_ context.Context, sessionID string) (engine.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[sessionID]
	return state, ok, nil
}

func (s *memStore) SaveState(_ context.Context, sessionID string, state engine.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = state
	return nil
}

type streamEnv struct {
	ts     *httptest.Server
	tokens *crypto.JWTManager
}

func newStreamEnv(t *testing.T) *streamEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := crypto.NewJWTManager("test-secret")
	require.NoError(t, err)

	srv := NewServer()
	mgr := session.NewManager(&memStore{states: make(map[string]engine.State)}, srv)
	srv.SetRuntime(mgr)

	router := gin.New()
	router.GET("/v1/sessions/:id/stream", middleware.Auth(tokens), srv.HandleStream)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Close)

	return &streamEnv{ts: ts, tokens: tokens}
}

func (e *streamEnv) dial(t *testing.T, sessionID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") +
		"/v1/sessions/" + sessionID + "/stream?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func TestStream_PushesInitialStateAndUpdates(t *testing.T) {
	e := newStreamEnv(t)
	token, err := e.tokens.CreateSessionToken("s1")
	require.NoError(t, err)

	conn := e.dial(t, "s1", token)

	var upd wire.StateUpdate
	require.NoError(t, conn.ReadJSON(&upd))
	require.Equal(t, wire.TypeState, upd.T)
	require.Equal(t, int64(0), upd.Seq)
	require.Equal(t, "0", upd.Display)

	require.NoError(t, conn.WriteJSON(wire.CommandEnvelope{T: wire.TypeDigit, Digit: "7"}))
	require.NoError(t, conn.ReadJSON(&upd))
	require.Equal(t, "7", upd.Display)
	require.Equal(t, int64(1), upd.Seq)

	require.NoError(t, conn.WriteJSON(wire.CommandEnvelope{T: wire.TypeSquare}))
	require.NoError(t, conn.ReadJSON(&upd))
	require.Equal(t, "49", upd.Display)
	require.Equal(t, "7² =", upd.History)
}

func TestStream_FansOutToEveryClient(t *testing.T) {
	e := newStreamEnv(t)
	token, err := e.tokens.CreateSessionToken("s1")
	require.NoError(t, err)

	a := e.dial(t, "s1", token)
	b := e.dial(t, "s1", token)

	var upd wire.StateUpdate
	require.NoError(t, a.ReadJSON(&upd))
	require.NoError(t, b.ReadJSON(&upd))

	require.NoError(t, a.WriteJSON(wire.CommandEnvelope{T: wire.TypeDigit, Digit: "5"}))

	require.NoError(t, a.ReadJSON(&upd))
	require.Equal(t, "5", upd.Display)
	require.NoError(t, b.ReadJSON(&upd))
	require.Equal(t, "5", upd.Display)
}

func TestStream_InvalidCommandReportsError(t *testing.T) {
	e := newStreamEnv(t)
	token, err := e.tokens.CreateSessionToken("s1")
	require.NoError(t, err)

	conn := e.dial(t, "s1", token)

	var upd wire.StateUpdate
	require.NoError(t, conn.ReadJSON(&upd))

	require.NoError(t, conn.WriteJSON(wire.CommandEnvelope{T: "bogus"}))

	var raw map[string]any
	require.NoError(t, conn.ReadJSON(&raw))
	require.Contains(t, raw, "error")
}

func TestStream_RejectsMissingToken(t *testing.T) {
	e := newStreamEnv(t)
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/v1/sessions/s1/stream"
	_, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
}

func TestStream_RejectsForeignSessionToken(t *testing.T) {
	e := newStreamEnv(t)
	token, err := e.tokens.CreateSessionToken("other")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") +
		"/v1/sessions/s1/stream?token=" + token
	_, _, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
}
