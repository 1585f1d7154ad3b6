package engine

import (
	"math"
	"strconv"
)

// State is a serializable snapshot of every engine field, used by the session
// layer to persist and resume calculators. The transient error flag is not
// part of durable state.
type State struct {
	CurrentInput         string   `json:"currentInput"`
	PreviousOperand      *float64 `json:"previousOperand,omitempty"`
	PendingOperator      string   `json:"pendingOperator,omitempty"`
	AwaitingFreshOperand bool     `json:"awaitingFreshOperand,omitempty"`
	HistoryText          string   `json:"historyText,omitempty"`
}

// State captures the durable fields of the calculator.
func (c *Calculator) State() State {
	s := State{
		CurrentInput:         c.currentInput,
		PendingOperator:      c.pendingOperator.Wire(),
		AwaitingFreshOperand: c.awaitingFresh,
		HistoryText:          c.historyText,
	}
	if c.previousOperand != nil {
		v := *c.previousOperand
		s.PreviousOperand = &v
	}
	return s
}

// Restore replaces the calculator state with a previously captured State.
// Invalid fields fall back to their initial values rather than violating the
// engine invariants.
func (c *Calculator) Restore(s State) {
	c.Clear()

	if v, err := strconv.ParseFloat(s.CurrentInput, 64); err == nil &&
		!math.IsInf(v, 0) && !math.IsNaN(v) {
		c.currentInput = s.CurrentInput
	}
	if s.PreviousOperand != nil {
		v := *s.PreviousOperand
		c.previousOperand = &v
	}
	if op, ok := ParseOperator(s.PendingOperator); ok {
		c.pendingOperator = op
	}
	c.awaitingFresh = s.AwaitingFreshOperand
	c.historyText = s.HistoryText
}
