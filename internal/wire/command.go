// Package wire defines the JSON vocabulary exchanged with presentation
// adapters: keypress command envelopes inbound, state updates outbound.
package wire

import (
	"fmt"

	"github.com/tallyhq/tally/internal/engine"
)

// Command envelope types.
const (
	TypeDigit      = "digit"
	TypeDecimal    = "decimal"
	TypeOperator   = "operator"
	TypeEquals     = "equals"
	TypeToggleSign = "toggle-sign"
	TypeSquare     = "square"
	TypeBackspace  = "backspace"
	TypeClear      = "clear"
)

// CommandEnvelope is the typed wrapper for client keypress commands.
//
// T selects the command; Digit carries the digit character for "digit" and
// Op carries the operator symbol for "operator".
type CommandEnvelope struct {
	T     string `json:"t"`
	Digit string `json:"digit,omitempty"`
	Op    string `json:"op,omitempty"`
}

// Command converts the envelope into an engine command.
func (e CommandEnvelope) Command() (engine.Command, error) {
	switch e.T {
	case TypeDigit:
		if len(e.Digit) != 1 || e.Digit[0] < '0' || e.Digit[0] > '9' {
			return nil, fmt.Errorf("invalid digit: %q", e.Digit)
		}
		return engine.DigitCommand{Digit: e.Digit[0]}, nil
	case TypeDecimal:
		return engine.DecimalCommand{}, nil
	case TypeOperator:
		if _, ok := engine.ParseOperator(e.Op); !ok {
			return nil, fmt.Errorf("invalid operator: %q", e.Op)
		}
		return engine.OperatorCommand{Symbol: e.Op}, nil
	case TypeEquals:
		return engine.EqualsCommand{}, nil
	case TypeToggleSign:
		return engine.ToggleSignCommand{}, nil
	case TypeSquare:
		return engine.SquareCommand{}, nil
	case TypeBackspace:
		return engine.BackspaceCommand{}, nil
	case TypeClear:
		return engine.ClearCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown command type: %q", e.T)
	}
}

// ParseKey maps a single keypad key to an engine command. It accepts the keys
// a browser or terminal adapter produces: digits, ".", the operator symbols,
// "=", "±", "²", "⌫" and "C".
func ParseKey(key string) (engine.Command, error) {
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return engine.DigitCommand{Digit: key[0]}, nil
	}
	switch key {
	case ".":
		return engine.DecimalCommand{}, nil
	case "+", "-", "*", "/", "%":
		return engine.OperatorCommand{Symbol: key}, nil
	case "=", "Enter":
		return engine.EqualsCommand{}, nil
	case "±", "negate":
		return engine.ToggleSignCommand{}, nil
	case "²", "square":
		return engine.SquareCommand{}, nil
	case "⌫", "Backspace":
		return engine.BackspaceCommand{}, nil
	case "C", "c", "Escape":
		return engine.ClearCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown key: %q", key)
	}
}
