// Package websocket streams calculator state to browser adapters over a plain
// WebSocket connection and feeds their keypresses into the session runtime.
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tallyhq/tally/internal/api/middleware"
	"github.com/tallyhq/tally/internal/engine"
	"github.com/tallyhq/tally/internal/logger"
	"github.com/tallyhq/tally/internal/wire"
	"github.com/tallyhq/tally/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // self-hosted default, CORS is handled at the HTTP layer
	},
}

// Runtime is the subset of session runtime operations the stream needs.
type Runtime interface {
	Press(ctx context.Context, sessionID string, cmd engine.Command, originID string)
	Snapshot(ctx context.Context, sessionID string) (engine.Snapshot, error)
}

// client is one connected adapter. Writes are serialized through mu because
// updates arrive from the session loop while reads run on this goroutine.
type client struct {
	id        string
	sessionID string
	conn      *websocket.Conn

	mu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Server fans session updates out to every adapter connected to a session.
type Server struct {
	runtime Runtime

	mu       sync.RWMutex
	sessions map[string]map[string]*client
}

// NewServer creates the stream server. The runtime is attached afterwards
// because the session manager emits through this server.
func NewServer() *Server {
	return &Server{
		sessions: make(map[string]map[string]*client),
	}
}

// SetRuntime attaches the session runtime. Must be called before serving.
func (s *Server) SetRuntime(rt Runtime) {
	s.runtime = rt
}

// HandleStream handles GET /v1/sessions/:id/stream. The route runs behind the
// auth middleware; browsers pass the token as a query parameter.
func (s *Server) HandleStream(c *gin.Context) {
	sessionID := c.Param("id")
	authID, ok := middleware.GetSessionID(c)
	if !ok || authID != sessionID {
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "token does not grant access to this session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	cl := &client{
		id:        uuid.NewString(),
		sessionID: sessionID,
		conn:      conn,
	}
	s.register(cl)
	defer s.unregister(cl)

	logger.Infof("Stream client %s connected to session %s", cl.id, sessionID)

	// Push the current state so the adapter can render before any keypress.
	// Seq 0 marks the initial snapshot; loop-emitted updates count from 1.
	ctx := c.Request.Context()
	snap, err := s.runtime.Snapshot(ctx, sessionID)
	if err != nil {
		logger.Warnf("Failed to read session %s snapshot: %v", sessionID, err)
		return
	}
	if err := cl.writeJSON(wire.NewStateUpdate(sessionID, 0, snap)); err != nil {
		return
	}

	for {
		var env wire.CommandEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warnf("Stream read error: %v", err)
			}
			break
		}

		cmd, err := env.Command()
		if err != nil {
			if werr := cl.writeJSON(types.ErrorResponse{Error: err.Error()}); werr != nil {
				break
			}
			continue
		}

		// No skip id: the stream is this client's only view of the result.
		s.runtime.Press(ctx, sessionID, cmd, "")
	}

	logger.Infof("Stream client %s disconnected from session %s", cl.id, sessionID)
}

// EmitStateUpdate implements session.UpdateEmitter. A client whose id matches
// skipClientID is not pushed to; REST callers that also hold a stream open
// pass their stream client id since they get the snapshot inline.
func (s *Server) EmitStateUpdate(sessionID string, update wire.StateUpdate, skipClientID string) {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.sessions[sessionID]))
	for _, cl := range s.sessions[sessionID] {
		if cl.id == skipClientID {
			continue
		}
		clients = append(clients, cl)
	}
	s.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.writeJSON(update); err != nil {
			logger.Warnf("Failed to push update to client %s: %v", cl.id, err)
		}
	}
}

// Close drops every connected client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, clients := range s.sessions {
		for _, cl := range clients {
			cl.conn.Close()
		}
	}
	s.sessions = make(map[string]map[string]*client)
}

func (s *Server) register(cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[cl.sessionID] == nil {
		s.sessions[cl.sessionID] = make(map[string]*client)
	}
	s.sessions[cl.sessionID][cl.id] = cl
}

func (s *Server) unregister(cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := s.sessions[cl.sessionID]
	delete(clients, cl.id)
	if len(clients) == 0 {
		delete(s.sessions, cl.sessionID)
	}
}
