package token

// Приоритеты операторов: чем больше, тем сильнее связывание.
// Открывающие скобки служат барьерами, ниже любого настоящего оператора.
const (
	PriorityBarrier  = 0 // ( [
	PriorityAssign   = 1 // =
	PriorityOr       = 2 // ||
	PriorityAnd      = 3 // &&
	PriorityCompare  = 4 // < <= > >= == !=
	PriorityAdditive = 5 // + -
	PriorityMultiply = 6 // * / %
)

var binaryOperators = map[string]int{
	"||": PriorityOr,
	"&&": PriorityAnd,
	"<":  PriorityCompare,
	"<=": PriorityCompare,
	">":  PriorityCompare,
	">=": PriorityCompare,
	"==": PriorityCompare,
	"!=": PriorityCompare,
	"+":  PriorityAdditive,
	"-":  PriorityAdditive,
	"*":  PriorityMultiply,
	"/":  PriorityMultiply,
	"%":  PriorityMultiply,
}

// Priority returns the precedence rank of an operator or bracket token.
// The second result is false for operands and markers.
func Priority(t Token) (int, bool) {
	switch t.Kind {
	case KindOperator:
		p, ok := binaryOperators[t.Text]
		return p, ok
	case KindAssign:
		return PriorityAssign, true
	case KindLParen, KindLBracket:
		return PriorityBarrier, true
	}
	return 0, false
}

// IsBinaryOperator reports whether text is one of the supported binary operators
func IsBinaryOperator(text string) bool {
	_, ok := binaryOperators[text]
	return ok
}

// Operators returns the supported binary operator spellings, longest first
func Operators() []string {
	return []string{"<=", ">=", "==", "!=", "&&", "||", "+", "-", "*", "/", "%", "<", ">"}
}
