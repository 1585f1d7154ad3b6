package engine

// Command is a tagged input variant applied to a Calculator. Commands replace
// stringly-typed action dispatch so every arm is statically typed.
type Command interface {
	isCommand()
}

// DigitCommand inputs a single digit character ('0'..'9').
type DigitCommand struct {
	Digit byte
}

// DecimalCommand inputs the decimal point.
type DecimalCommand struct{}

// OperatorCommand selects a binary operator by its wire symbol.
type OperatorCommand struct {
	Symbol string
}

// EqualsCommand applies the pending operation.
type EqualsCommand struct{}

// ToggleSignCommand flips the sign of the current input.
type ToggleSignCommand struct{}

// SquareCommand squares the current value.
type SquareCommand struct{}

// BackspaceCommand removes the last input character.
type BackspaceCommand struct{}

// ClearCommand resets the calculator.
type ClearCommand struct{}

func (DigitCommand) isCommand()      {}
func (DecimalCommand) isCommand()    {}
func (OperatorCommand) isCommand()   {}
func (EqualsCommand) isCommand()     {}
func (ToggleSignCommand) isCommand() {}
func (SquareCommand) isCommand()     {}
func (BackspaceCommand) isCommand()  {}
func (ClearCommand) isCommand()      {}

// Apply dispatches a command to the matching state transition.
func (c *Calculator) Apply(cmd Command) {
	switch cmd := cmd.(type) {
	case DigitCommand:
		c.InputDigit(cmd.Digit)
	case DecimalCommand:
		c.InputDecimalPoint()
	case OperatorCommand:
		c.SelectOperator(cmd.Symbol)
	case EqualsCommand:
		c.Calculate()
	case ToggleSignCommand:
		c.ToggleSign()
	case SquareCommand:
		c.Square()
	case BackspaceCommand:
		c.Backspace()
	case ClearCommand:
		c.Clear()
	}
}
