package engine

import "math"

// roundFactor scales results so they can be rounded to 8 decimal places.
const roundFactor = 1e8

// apply evaluates a binary operation and rounds the result.
//
// Modulo uses truncated-division remainder semantics (math.Mod), so the sign
// of the result follows the dividend.
func apply(a, b float64, op Operator) (float64, error) {
	var result float64
	switch op {
	case OpAdd:
		result = a + b
	case OpSubtract:
		result = a - b
	case OpMultiply:
		result = a * b
	case OpDivide:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		result = a / b
	case OpModulo:
		result = math.Mod(a, b)
	default:
		return 0, ErrUnknownOperator
	}
	return checkAndRound(result)
}

// checkAndRound rejects non-finite results and rounds the rest to 8 decimal
// places to neutralize binary floating-point representation noise.
func checkAndRound(result float64) (float64, error) {
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, ErrResultTooLarge
	}
	return round8(result), nil
}

// round8 rounds half away from zero at the 8th decimal place.
//
// Values at or above 1e15 are returned unchanged: they carry no representable
// fraction at 8 decimals, and skipping them keeps the scaled intermediate
// from overflowing to infinity.
func round8(v float64) float64 {
	if math.Abs(v) >= 1e15 {
		return v
	}
	return math.Round(v*roundFactor) / roundFactor
}
