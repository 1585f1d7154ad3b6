package engine

import "errors"

// Calculation failures are reported as values on the snapshot, never as
// panics. Each sentinel maps to a stable user-facing message.
var (
	// ErrDivisionByZero is returned when the divisor of a division is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrResultTooLarge is returned when a result is not a finite number.
	ErrResultTooLarge = errors.New("result too large")
	// ErrUnknownOperator is returned for an operator outside the known set.
	ErrUnknownOperator = errors.New("unknown operator")
)

// ErrorMessage maps a calculation error to the message shown to the user.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDivisionByZero):
		return "Cannot divide by zero"
	case errors.Is(err, ErrResultTooLarge):
		return "Result too large"
	default:
		return "Calculation error"
	}
}
