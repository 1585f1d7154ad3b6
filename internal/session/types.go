package session

import (
	"context"
	"time"

	"github.com/tallyhq/tally/internal/engine"
	"github.com/tallyhq/tally/internal/wire"
)

// Store abstracts persistence for session runtimes.
type Store interface {
	LoadState(ctx context.Context, sessionID string) (engine.State, bool, error)
	SaveState(ctx context.Context, sessionID string, state engine.State) error
}

// UpdateEmitter delivers state updates to connected clients.
type UpdateEmitter interface {
	EmitStateUpdate(sessionID string, update wire.StateUpdate, skipClientID string)
}

// Record is a stored session row.
type Record struct {
	ID           string
	State        engine.State
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastActiveAt time.Time
}

// commandEvent carries one keypress into the session loop. When reply is
// non-nil (buffered, capacity 1) the resulting snapshot is sent back.
type commandEvent struct {
	ctx      context.Context
	cmd      engine.Command
	originID string
	reply    chan engine.Snapshot
}

// snapshotEvent requests the current snapshot without mutating state.
type snapshotEvent struct {
	ctx   context.Context
	reply chan engine.Snapshot
}

// clearErrorEvent is the delayed error auto-clear. It only applies when gen
// still matches the session's input generation; any intervening input or
// manual clear makes it stale.
type clearErrorEvent struct {
	gen uint64
}

// stopEvent terminates a session loop after its session is deleted.
type stopEvent struct{}
