package wire

import (
	"encoding/json"
	"fmt"

	"github.com/tallyhq/tally/internal/engine"
)

// TypeState tags outbound state updates.
const TypeState = "state"

// StateUpdate is pushed to connected clients after every applied command.
//
// Seq increases by one per update within a session so clients can detect
// missed updates.
type StateUpdate struct {
	T            string `json:"t"`
	SessionID    string `json:"sessionId"`
	Seq          int64  `json:"seq"`
	Display      string `json:"display"`
	History      string `json:"history"`
	ErrorActive  bool   `json:"errorActive"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// NewStateUpdate builds a StateUpdate from an engine snapshot.
func NewStateUpdate(sessionID string, seq int64, snap engine.Snapshot) StateUpdate {
	return StateUpdate{
		T:            TypeState,
		SessionID:    sessionID,
		Seq:          seq,
		Display:      snap.DisplayText,
		History:      snap.HistoryText,
		ErrorActive:  snap.ErrorActive,
		ErrorMessage: snap.ErrorMessage,
	}
}

// ParseStateUpdate parses an update payload into a typed StateUpdate.
func ParseStateUpdate(data []byte) (*StateUpdate, error) {
	var upd StateUpdate
	if err := json.Unmarshal(data, &upd); err != nil {
		return nil, err
	}
	if upd.T != TypeState {
		return nil, fmt.Errorf("unexpected update type: %q", upd.T)
	}
	return &upd, nil
}
