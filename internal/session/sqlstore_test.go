package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tallyhq/tally/internal/database"
	"github.com/tallyhq/tally/internal/engine"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db.DB)
}

func TestSQLStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.CreateSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "s1", rec.ID)
	require.Equal(t, "0", rec.State.CurrentInput)

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, rec.State, got.State)
}

func TestSQLStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSession(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_SaveAndLoadState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "s1")
	require.NoError(t, err)

	calc := engine.New()
	calc.Apply(engine.DigitCommand{Digit: '7'})
	calc.Apply(engine.OperatorCommand{Symbol: "*"})
	require.NoError(t, store.SaveState(ctx, "s1", calc.State()))

	state, ok, err := store.LoadState(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, calc.State(), state)
}

func TestSQLStore_SaveStateMissingSession(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveState(context.Background(), "nope", engine.New().State())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_LoadStateMissingSession(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.LoadState(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateSession(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.DeleteSession(ctx, "s1"))

	_, err = store.GetSession(ctx, "s1")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.DeleteSession(ctx, "s1"), ErrNotFound)
}
