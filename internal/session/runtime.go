// Package session hosts calculator engines server-side. Each session owns one
// engine, mutated exclusively by a single goroutine that serializes all input
// events, persists state after every applied command, and emits updates to
// connected clients.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/tallyhq/tally/internal/engine"
	"github.com/tallyhq/tally/internal/logger"
	"github.com/tallyhq/tally/internal/wire"
)

// DefaultClearDelay is how long a surfaced error stays before the session is
// automatically reset.
const DefaultClearDelay = 2000 * time.Millisecond

// Manager owns per-session runtimes and provides serialized entrypoints.
type Manager struct {
	store   Store
	emitter UpdateEmitter

	// clearDelay is the error auto-clear delay; tests shorten it.
	clearDelay time.Duration

	mu       sync.Mutex
	runtimes map[string]*sessionRuntime
}

// NewManager creates a new per-session runtime manager.
func NewManager(store Store, emitter UpdateEmitter) *Manager {
	return &Manager{
		store:      store,
		emitter:    emitter,
		clearDelay: DefaultClearDelay,
		runtimes:   make(map[string]*sessionRuntime),
	}
}

// Apply runs one command against a session and returns the resulting
// snapshot. Commands for the same session are serialized in arrival order.
//
// originID identifies the client that produced the command; the emitted
// update skips that client so it does not render the same keypress twice.
func (m *Manager) Apply(ctx context.Context, sessionID string, cmd engine.Command, originID string) (engine.Snapshot, error) {
	rt := m.getOrCreate(sessionID)
	reply := make(chan engine.Snapshot, 1)
	if err := rt.send(ctx, commandEvent{ctx: ctx, cmd: cmd, originID: originID, reply: reply}); err != nil {
		return engine.Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return engine.Snapshot{}, ctx.Err()
	}
}

// Press schedules one command without waiting for the result. The outcome
// reaches clients through the update emitter.
func (m *Manager) Press(ctx context.Context, sessionID string, cmd engine.Command, originID string) {
	rt := m.getOrCreate(sessionID)
	rt.enqueue(commandEvent{ctx: ctx, cmd: cmd, originID: originID})
}

// Snapshot returns the current snapshot of a session without mutating it.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	rt := m.getOrCreate(sessionID)
	reply := make(chan engine.Snapshot, 1)
	if err := rt.send(ctx, snapshotEvent{ctx: ctx, reply: reply}); err != nil {
		return engine.Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return engine.Snapshot{}, ctx.Err()
	}
}

// Forget drops the runtime for a deleted session. A later command for the
// same id starts a fresh runtime that loads whatever the store holds.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	rt, ok := m.runtimes[sessionID]
	if ok {
		delete(m.runtimes, sessionID)
	}
	m.mu.Unlock()
	if ok {
		rt.enqueue(stopEvent{})
	}
}

func (m *Manager) getOrCreate(sessionID string) *sessionRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.runtimes[sessionID]; ok {
		return rt
	}
	rt := newSessionRuntime(m.store, m.emitter, sessionID, m.clearDelay)
	m.runtimes[sessionID] = rt
	return rt
}

type sessionRuntime struct {
	store   Store
	emitter UpdateEmitter

	sessionID  string
	clearDelay time.Duration
	events     chan any

	startOnce sync.Once

	// Everything below is owned by the loop goroutine.
	calc   *engine.Calculator
	loaded bool
	gen    uint64
	seq    int64
}

func newSessionRuntime(store Store, emitter UpdateEmitter, sessionID string, clearDelay time.Duration) *sessionRuntime {
	return &sessionRuntime{
		store:      store,
		emitter:    emitter,
		sessionID:  sessionID,
		clearDelay: clearDelay,
		events:     make(chan any, 256),
		calc:       engine.New(),
	}
}

func (r *sessionRuntime) start() {
	r.startOnce.Do(func() { go r.loop() })
}

// enqueue delivers an event without blocking the caller; under overload the
// event is dropped with a warning rather than stalling transport callbacks.
func (r *sessionRuntime) enqueue(evt any) {
	r.start()
	select {
	case r.events <- evt:
	default:
		logger.Warnf("[session] %s queue full; dropping event %T", r.sessionID, evt)
	}
}

// send delivers an event, waiting until the loop accepts it or the context
// ends. Used for events that carry a reply channel.
func (r *sessionRuntime) send(ctx context.Context, evt any) error {
	r.start()
	select {
	case r.events <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *sessionRuntime) loop() {
	for evt := range r.events {
		switch e := evt.(type) {
		case commandEvent:
			r.handleCommand(e)
		case snapshotEvent:
			r.handleSnapshot(e)
		case clearErrorEvent:
			r.handleClearError(e)
		case stopEvent:
			return
		default:
			logger.Warnf("[session] %s: unknown event %T", r.sessionID, evt)
		}
	}
}

func (r *sessionRuntime) handleCommand(e commandEvent) {
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	r.ensureLoaded(ctx)

	// Any input invalidates a pending delayed auto-clear.
	r.gen++

	r.calc.Apply(e.cmd)
	snap := r.commit(ctx, e.originID)

	if snap.ErrorActive {
		r.scheduleClear()
	}
	if e.reply != nil {
		e.reply <- snap
	}
}

func (r *sessionRuntime) handleSnapshot(e snapshotEvent) {
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	r.ensureLoaded(ctx)
	e.reply <- r.calc.Snapshot()
}

func (r *sessionRuntime) handleClearError(e clearErrorEvent) {
	if e.gen != r.gen {
		logger.Debugf("[session] %s: stale auto-clear (gen %d != %d)", r.sessionID, e.gen, r.gen)
		return
	}
	r.gen++
	r.calc.Clear()
	r.commit(context.Background(), "")
}

// scheduleClear arms the delayed full reset after an error. The timer fires
// back into the loop as an event carrying the current input generation, so a
// late timer can never clobber state the user has since changed.
func (r *sessionRuntime) scheduleClear() {
	gen := r.gen
	time.AfterFunc(r.clearDelay, func() {
		r.enqueue(clearErrorEvent{gen: gen})
	})
}

// commit persists the engine state and fans the new snapshot out to clients.
func (r *sessionRuntime) commit(ctx context.Context, originID string) engine.Snapshot {
	snap := r.calc.Snapshot()
	if err := r.store.SaveState(ctx, r.sessionID, r.calc.State()); err != nil {
		logger.Errorf("[session] %s: persist failed: %v", r.sessionID, err)
	}
	r.seq++
	r.emitter.EmitStateUpdate(r.sessionID, wire.NewStateUpdate(r.sessionID, r.seq, snap), originID)
	return snap
}

func (r *sessionRuntime) ensureLoaded(ctx context.Context) {
	if r.loaded {
		return
	}
	r.loaded = true
	state, ok, err := r.store.LoadState(ctx, r.sessionID)
	if err != nil {
		logger.Errorf("[session] %s: load failed: %v", r.sessionID, err)
		return
	}
	if ok {
		r.calc.Restore(state)
	}
}
