package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	c := New()
	digits(c, "12")
	c.SelectOperator("*")
	digits(c, "3")

	raw, err := json.Marshal(c.State())
	require.NoError(t, err)

	var state State
	require.NoError(t, json.Unmarshal(raw, &state))

	restored := New()
	restored.Restore(state)
	require.Equal(t, c.State(), restored.State())
	require.Equal(t, c.Snapshot(), restored.Snapshot())

	// The pending operation survives the round trip.
	restored.Calculate()
	require.Equal(t, "36", restored.DisplayText())
}

func TestRestore_InvalidInputFallsBackToZero(t *testing.T) {
	c := New()
	c.Restore(State{CurrentInput: "not a number", HistoryText: "x"})
	require.Equal(t, "0", c.DisplayText())
	require.Equal(t, "x", c.HistoryText())

	c.Restore(State{CurrentInput: "Inf"})
	require.Equal(t, "0", c.DisplayText())
}

func TestRestore_RejectsUnknownOperator(t *testing.T) {
	c := New()
	c.Restore(State{CurrentInput: "5", PendingOperator: "?"})

	// No operator pending, so equals is a no-op.
	c.Calculate()
	require.Equal(t, "5", c.DisplayText())
}
