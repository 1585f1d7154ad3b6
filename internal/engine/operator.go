package engine

// Operator identifies a binary arithmetic operation.
type Operator int

const (
	// OpNone means no operator is pending.
	OpNone Operator = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
)

// ParseOperator maps an external operator symbol to an Operator.
//
// Accepted symbols are "+", "-", "*", "/" and "%".
func ParseOperator(symbol string) (Operator, bool) {
	switch symbol {
	case "+":
		return OpAdd, true
	case "-":
		return OpSubtract, true
	case "*":
		return OpMultiply, true
	case "/":
		return OpDivide, true
	case "%":
		return OpModulo, true
	default:
		return OpNone, false
	}
}

// Wire returns the external symbol for the operator, or "" for OpNone.
func (op Operator) Wire() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	default:
		return ""
	}
}

// Symbol returns the display symbol for the operator. Multiplication and
// division render as "×" and "÷"; the rest match their wire symbols.
func (op Operator) Symbol() string {
	switch op {
	case OpMultiply:
		return "×"
	case OpDivide:
		return "÷"
	default:
		return op.Wire()
	}
}
