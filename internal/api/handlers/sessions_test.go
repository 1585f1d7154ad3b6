package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/api/middleware"
	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/engine"
	"github.com/tallyhq/tally/internal/session"
)

type fakeStore struct {
	records map[string]session.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]session.Record)}
}

func (s *fakeStore) CreateSession(_ context.Context, sessionID string) (session.Record, error) {
	rec := session.Record{
		ID:           sessionID,
		State:        engine.New().State(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		LastActiveAt: time.Now(),
	}
	s.records[sessionID] = rec
	return rec, nil
}

func (s *fakeStore) GetSession(_ context.Context, sessionID string) (session.Record, error) {
	rec, ok := s.records[sessionID]
	if !ok {
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) DeleteSession(_ context.Context, sessionID string) error {
	if _, ok := s.records[sessionID]; !ok {
		return session.ErrNotFound
	}
	delete(s.records, sessionID)
	return nil
}

// fakeRuntime applies commands against in-memory calculators, bypassing the
// session event loop.
type fakeRuntime struct {
	calcs     map[string]*engine.Calculator
	forgotten []string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{calcs: make(map[string]*engine.Calculator)}
}

func (r *fakeRuntime) Apply(_ context.Context, sessionID string, cmd engine.Command, _ string) (engine.Snapshot, error) {
	calc, ok := r.calcs[sessionID]
	if !ok {
		calc = engine.New()
		r.calcs[sessionID] = calc
	}
	calc.Apply(cmd)
	return calc.Snapshot(), nil
}

func (r *fakeRuntime) Forget(sessionID string) {
	r.forgotten = append(r.forgotten, sessionID)
}

type testEnv struct {
	router  *gin.Engine
	store   *fakeStore
	runtime *fakeRuntime
	tokens  *crypto.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := crypto.NewJWTManager("test-secret")
	require.NoError(t, err)

	store := newFakeStore()
	runtime := newFakeRuntime()
	handler := NewSessionHandler(store, runtime, tokens)
	handler.newID = func() string { return "fixed-id" }

	router := gin.New()
	v1 := router.Group("/v1")
	v1.POST("/sessions", handler.CreateSession)

	protected := v1.Group("")
	protected.Use(middleware.Auth(tokens))
	protected.GET("/sessions/:id", handler.GetSession)
	protected.POST("/sessions/:id/keys", handler.PressKey)
	protected.DELETE("/sessions/:id", handler.DeleteSession)

	return &testEnv{router: router, store: store, runtime: runtime, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, e *testEnv) CreateSessionResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/sessions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateSession(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	require.Equal(t, "fixed-id", resp.ID)
	require.Equal(t, "0", resp.State.DisplayText)
	require.NotEmpty(t, resp.Token)

	claims, err := e.tokens.VerifyToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, "fixed-id", claims.Subject)
}

func TestGetSession(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	w := e.do(t, http.MethodGet, "/v1/sessions/"+resp.ID, resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, resp.ID, got.ID)
	require.Equal(t, "0", got.State.DisplayText)
}

func TestGetSession_RequiresToken(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	w := e.do(t, http.MethodGet, "/v1/sessions/"+resp.ID, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/v1/sessions/"+resp.ID, "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetSession_TokenScopedToSession(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	otherToken, err := e.tokens.CreateSessionToken("other-session")
	require.NoError(t, err)

	w := e.do(t, http.MethodGet, "/v1/sessions/"+resp.ID, otherToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPressKey(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	for _, key := range []string{"3", "+", "4", "="} {
		w := e.do(t, http.MethodPost, "/v1/sessions/"+resp.ID+"/keys", resp.Token, PressKeyRequest{Key: key})
		require.Equal(t, http.StatusOK, w.Code)
	}

	var snap engine.Snapshot
	w := e.do(t, http.MethodPost, "/v1/sessions/"+resp.ID+"/keys", resp.Token, PressKeyRequest{Key: "²"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Equal(t, "49", snap.DisplayText)
	require.Equal(t, "7² =", snap.HistoryText)
}

func TestPressKey_UnknownKey(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	w := e.do(t, http.MethodPost, "/v1/sessions/"+resp.ID+"/keys", resp.Token, PressKeyRequest{Key: "q"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPressKey_MissingBody(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	w := e.do(t, http.MethodPost, "/v1/sessions/"+resp.ID+"/keys", resp.Token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPressKey_MissingSession(t *testing.T) {
	e := newTestEnv(t)
	token, err := e.tokens.CreateSessionToken("ghost")
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/v1/sessions/ghost/keys", token, PressKeyRequest{Key: "1"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSession(t *testing.T) {
	e := newTestEnv(t)
	resp := createSession(t, e)

	w := e.do(t, http.MethodDelete, "/v1/sessions/"+resp.ID, resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{resp.ID}, e.runtime.forgotten)

	w = e.do(t, http.MethodGet, "/v1/sessions/"+resp.ID, resp.Token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
