// Package engine implements the calculator state machine: numeric input
// accumulation, a single pending binary operation, arithmetic application
// with 8-decimal rounding, and display/history rendering.
//
// A Calculator is not safe for concurrent use; it is meant to be owned by a
// single event loop (see internal/session).
package engine

import (
	"strconv"
	"strings"
)

// maxInputLen caps the accumulated numeric literal to bound the displayed
// magnitude. Characters beyond the cap are silently dropped.
const maxInputLen = 12

// Calculator holds the interaction state of one calculator instance.
//
// currentInput always parses to a finite number or is the literal "0".
// At most one operator is pending at a time.
type Calculator struct {
	currentInput    string
	previousOperand *float64
	pendingOperator Operator
	awaitingFresh   bool
	historyText     string
	errActive       bool
	errMessage      string
}

// New creates a calculator in its initial state.
func New() *Calculator {
	return &Calculator{currentInput: "0"}
}

// Snapshot is the observable output of the engine after each command.
type Snapshot struct {
	DisplayText  string `json:"display"`
	HistoryText  string `json:"history"`
	ErrorActive  bool   `json:"errorActive"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Snapshot returns the current observable state.
func (c *Calculator) Snapshot() Snapshot {
	return Snapshot{
		DisplayText:  c.DisplayText(),
		HistoryText:  c.historyText,
		ErrorActive:  c.errActive,
		ErrorMessage: c.errMessage,
	}
}

// DisplayText returns the text shown in the main display. While a literal is
// being typed the raw input is shown (so "0." stays visible); once a result
// or operator settles the value, it is shown formatted.
func (c *Calculator) DisplayText() string {
	if c.awaitingFresh {
		return FormatNumber(c.value())
	}
	return c.currentInput
}

// HistoryText returns the one-line trace of the most recent operator
// selection or completed calculation.
func (c *Calculator) HistoryText() string { return c.historyText }

// InputDigit appends a digit to the in-progress literal, or starts a new one
// when a fresh operand is awaited. A sole "0" is replaced rather than
// prefixed. Input beyond the length cap is dropped without error.
func (c *Calculator) InputDigit(d byte) {
	if d < '0' || d > '9' {
		return
	}
	c.resetError()
	if c.awaitingFresh {
		c.currentInput = string(d)
		c.awaitingFresh = false
		return
	}
	if c.currentInput == "0" {
		c.currentInput = string(d)
		return
	}
	if len(c.currentInput) >= maxInputLen {
		return
	}
	c.currentInput += string(d)
}

// InputDecimalPoint appends a decimal point. A second decimal point in the
// same literal is a no-op.
func (c *Calculator) InputDecimalPoint() {
	c.resetError()
	if c.awaitingFresh {
		c.currentInput = "0."
		c.awaitingFresh = false
		return
	}
	if strings.ContainsRune(c.currentInput, '.') {
		return
	}
	if len(c.currentInput) >= maxInputLen {
		return
	}
	c.currentInput += "."
}

// ToggleSign flips the sign of the current input. Zero keeps its sign.
func (c *Calculator) ToggleSign() {
	c.resetError()
	if c.value() == 0 {
		return
	}
	if strings.HasPrefix(c.currentInput, "-") {
		c.currentInput = c.currentInput[1:]
	} else {
		c.currentInput = "-" + c.currentInput
	}
}

// Backspace removes the last character of the in-progress literal. It is a
// no-op while a fresh operand is awaited, so a just-computed result cannot be
// edited by deletion.
func (c *Calculator) Backspace() {
	c.resetError()
	if c.awaitingFresh {
		return
	}
	if len(c.currentInput) > 0 {
		c.currentInput = c.currentInput[:len(c.currentInput)-1]
	}
	if c.currentInput == "" || c.currentInput == "-" {
		c.currentInput = "0"
	}
}

// SelectOperator records a pending operator. If an operator is already
// pending, the pending operation is evaluated first so sequences like
// "3 + 4 + 5" chain left to right without pressing equals. On a failed
// evaluation the operator press is discarded and prior state kept.
func (c *Calculator) SelectOperator(symbol string) {
	c.resetError()
	op, ok := ParseOperator(symbol)
	if !ok {
		c.fail(ErrUnknownOperator)
		return
	}

	operand := c.value()
	if c.previousOperand == nil {
		c.previousOperand = &operand
	} else if c.pendingOperator != OpNone {
		result, err := apply(*c.previousOperand, operand, c.pendingOperator)
		if err != nil {
			c.fail(err)
			return
		}
		c.setValue(result)
		c.previousOperand = &result
	}

	c.awaitingFresh = true
	c.pendingOperator = op
	c.historyText = FormatNumber(*c.previousOperand) + " " + op.Symbol()
}

// Calculate applies the pending operation. Without a pending operator it is a
// no-op. On failure the error is surfaced and prior state kept intact.
func (c *Calculator) Calculate() {
	c.resetError()
	if c.previousOperand == nil || c.pendingOperator == OpNone {
		return
	}

	operand := c.value()
	result, err := apply(*c.previousOperand, operand, c.pendingOperator)
	if err != nil {
		c.fail(err)
		return
	}

	c.historyText = FormatNumber(*c.previousOperand) + " " +
		c.pendingOperator.Symbol() + " " + FormatNumber(operand) + " ="
	c.setValue(result)
	c.previousOperand = nil
	c.pendingOperator = OpNone
	c.awaitingFresh = true
}

// Square replaces the current value with its square. It is not gated on the
// pending-operator state: invoked mid-chain it collapses the chain to a
// result, the same way Calculate does.
func (c *Calculator) Square() {
	c.resetError()
	x := c.value()
	result, err := checkAndRound(x * x)
	if err != nil {
		c.fail(err)
		return
	}

	c.historyText = FormatNumber(x) + "² ="
	c.setValue(result)
	c.previousOperand = nil
	c.pendingOperator = OpNone
	c.awaitingFresh = true
}

// Clear resets every field to its initial value. Total reset, not undo.
func (c *Calculator) Clear() {
	*c = Calculator{currentInput: "0"}
}

func (c *Calculator) value() float64 {
	v, err := strconv.ParseFloat(c.currentInput, 64)
	if err != nil {
		return 0
	}
	return v
}

func (c *Calculator) setValue(v float64) {
	c.currentInput = strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Calculator) fail(err error) {
	c.errActive = true
	c.errMessage = ErrorMessage(err)
}

// resetError drops a previously surfaced transient error. Every new input
// event runs through here, so error styling lifts as soon as the user acts.
func (c *Calculator) resetError() {
	c.errActive = false
	c.errMessage = ""
}
