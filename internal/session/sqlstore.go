package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tallyhq/tally/internal/engine"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// SQLStore implements Store on the sessions table. It also carries the
// create/get/delete operations used by the API handlers.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore creates a store over an open database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// CreateSession inserts a new session with a fresh engine state.
func (s *SQLStore) CreateSession(ctx context.Context, sessionID string) (Record, error) {
	state := engine.New().State()
	raw, err := json.Marshal(state)
	if err != nil {
		return Record{}, err
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, state, created_at, updated_at, last_active_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(raw), now, now, now)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create session: %w", err)
	}
	return Record{
		ID:           sessionID,
		State:        state,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}, nil
}

// GetSession loads a session row.
func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (Record, error) {
	var (
		rec Record
		raw string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, state, created_at, updated_at, last_active_at
		FROM sessions WHERE id = ?`, sessionID).
		Scan(&rec.ID, &raw, &rec.CreatedAt, &rec.UpdatedAt, &rec.LastActiveAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load session: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &rec.State); err != nil {
		return Record{}, fmt.Errorf("failed to decode session state: %w", err)
	}
	return rec, nil
}

// DeleteSession removes a session row.
func (s *SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadState implements Store.
func (s *SQLStore) LoadState(ctx context.Context, sessionID string) (engine.State, bool, error) {
	rec, err := s.GetSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return engine.State{}, false, nil
	}
	if err != nil {
		return engine.State{}, false, err
	}
	return rec.State, true, nil
}

// SaveState implements Store. It also touches the activity timestamp so idle
// sessions can be told apart from live ones.
func (s *SQLStore) SaveState(ctx context.Context, sessionID string, state engine.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET state = ?, updated_at = ?, last_active_at = ?
		WHERE id = ?`,
		string(raw), now, now, sessionID)
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
