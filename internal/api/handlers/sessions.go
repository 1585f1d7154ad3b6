package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/api/middleware"
	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/engine"
	"github.com/tallyhq/tally/internal/logger"
	"github.com/tallyhq/tally/internal/session"
	"github.com/tallyhq/tally/internal/wire"
	"github.com/tallyhq/tally/pkg/types"
)

// SessionStore is the subset of store operations used by the REST handlers.
type SessionStore interface {
	CreateSession(ctx context.Context, sessionID string) (session.Record, error)
	GetSession(ctx context.Context, sessionID string) (session.Record, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Runtime is the subset of session runtime operations used by the handlers.
type Runtime interface {
	Apply(ctx context.Context, sessionID string, cmd engine.Command, originID string) (engine.Snapshot, error)
	Forget(sessionID string)
}

type SessionHandler struct {
	store   SessionStore
	runtime Runtime
	tokens  *crypto.JWTManager
	newID   func() string
}

func NewSessionHandler(store SessionStore, runtime Runtime, tokens *crypto.JWTManager) *SessionHandler {
	return &SessionHandler{
		store:   store,
		runtime: runtime,
		tokens:  tokens,
		newID:   uuid.NewString,
	}
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID           string          `json:"id"`
	CreatedAt    int64           `json:"createdAt"`
	UpdatedAt    int64           `json:"updatedAt"`
	LastActiveAt int64           `json:"lastActiveAt"`
	State        engine.Snapshot `json:"state"`
}

// CreateSessionResponse is the response for session creation; the token
// authorizes all further calls against the session.
type CreateSessionResponse struct {
	SessionResponse
	Token string `json:"token"`
}

// PressKeyRequest carries one keypad key. ClientID optionally names the
// caller's stream connection so the resulting update is not pushed back to a
// client that already receives the snapshot in this response.
type PressKeyRequest struct {
	Key      string `json:"key" binding:"required"`
	ClientID string `json:"clientId,omitempty"`
}

// CreateSession handles POST /v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	id := h.newID()

	rec, err := h.store.CreateSession(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("Failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to create session"})
		return
	}

	token, err := h.tokens.CreateSessionToken(id)
	if err != nil {
		logger.Errorf("Failed to issue session token: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, CreateSessionResponse{
		SessionResponse: sessionResponse(rec),
		Token:           token,
	})
}

// GetSession handles GET /v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := h.authorize(c)
	if !ok {
		return
	}

	rec, err := h.store.GetSession(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "session not found"})
		return
	}
	if err != nil {
		logger.Errorf("Failed to load session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to load session"})
		return
	}

	c.JSON(http.StatusOK, sessionResponse(rec))
}

// PressKey handles POST /v1/sessions/:id/keys. It applies one keypress and
// returns the resulting snapshot.
func (h *SessionHandler) PressKey(c *gin.Context) {
	id, ok := h.authorize(c)
	if !ok {
		return
	}

	var req PressKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "key is required"})
		return
	}

	cmd, err := wire.ParseKey(req.Key)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	if _, err := h.store.GetSession(c.Request.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "session not found"})
			return
		}
		logger.Errorf("Failed to load session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to load session"})
		return
	}

	snap, err := h.runtime.Apply(c.Request.Context(), id, cmd, req.ClientID)
	if err != nil {
		logger.Errorf("Failed to apply key to session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to apply key"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// DeleteSession handles DELETE /v1/sessions/:id.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := h.authorize(c)
	if !ok {
		return
	}

	if err := h.store.DeleteSession(c.Request.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "session not found"})
			return
		}
		logger.Errorf("Failed to delete session %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "failed to delete session"})
		return
	}

	h.runtime.Forget(id)
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// authorize checks that the token subject matches the :id route parameter.
func (h *SessionHandler) authorize(c *gin.Context) (string, bool) {
	id := c.Param("id")
	authID, ok := middleware.GetSessionID(c)
	if !ok || authID != id {
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "token does not grant access to this session"})
		return "", false
	}
	return id, true
}

func sessionResponse(rec session.Record) SessionResponse {
	calc := engine.New()
	calc.Restore(rec.State)
	return SessionResponse{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt.UnixMilli(),
		UpdatedAt:    rec.UpdatedAt.UnixMilli(),
		LastActiveAt: rec.LastActiveAt.UnixMilli(),
		State:        calc.Snapshot(),
	}
}
