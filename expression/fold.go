package expression

import (
	"opzterm/ast"
	"opzterm/errors"
	"opzterm/token"
)

// ValueStack is the operand stack used when replaying postfix tokens into a tree.
// Each entry is a fully built sub-expression.
type ValueStack struct {
	items []ast.Expr
}

// Len returns the number of fragments on the stack
func (s *ValueStack) Len() int {
	return len(s.items)
}

// Push adds a fragment
func (s *ValueStack) Push(e ast.Expr) {
	s.items = append(s.items, e)
}

// Pop removes the top fragment; tok is the token that requested it and is used for error context
func (s *ValueStack) Pop(tok token.Token) (ast.Expr, error) {
	if len(s.items) == 0 {
		return nil, errors.NewStackUnderflow("value", tok.String(), tok.Line)
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, nil
}

// Drain empties the stack and returns its fragments bottom first
func (s *ValueStack) Drain() []ast.Expr {
	items := s.items
	s.items = nil
	return items
}

// Apply replays one expression token: operands are pushed, operators and
// access markers pop their arguments and push the combined fragment.
func (s *ValueStack) Apply(tok token.Token) error {
	switch tok.Kind {
	case token.KindOperand:
		s.Push(&ast.Operand{Text: tok.Text})
		return nil

	case token.KindOperator:
		right, err := s.Pop(tok)
		if err != nil {
			return err
		}
		left, err := s.Pop(tok)
		if err != nil {
			return err
		}
		s.Push(&ast.Binary{Op: tok.Text, Left: left, Right: right})
		return nil

	case token.KindAccess:
		if tok.Arity < 1 {
			return errors.NewMalformedExpression("BAD_ACCESS_ARITY", "access arity must be a positive integer").
				WithLine(tok.Line).WithToken(tok.String())
		}
		indices := make([]ast.Expr, tok.Arity)
		for i := tok.Arity - 1; i >= 0; i-- {
			idx, err := s.Pop(tok)
			if err != nil {
				return err
			}
			indices[i] = idx
		}
		array, err := s.Pop(tok)
		if err != nil {
			return err
		}
		s.Push(&ast.Access{Array: array, Indices: indices})
		return nil
	}

	return errors.NewMalformedExpression("NOT_AN_EXPRESSION_TOKEN", "token cannot appear inside a postfix expression").
		WithLine(tok.Line).
		WithToken(tok.String())
}

// Fold evaluates a postfix expression into a single tree
func Fold(postfix []token.Token) (ast.Expr, error) {
	var stack ValueStack
	for _, tok := range postfix {
		if err := stack.Apply(tok); err != nil {
			return nil, err
		}
	}
	return single(&stack, postfix)
}

// FoldStatement evaluates a postfix statement: either an expression or "target value =".
func FoldStatement(postfix []token.Token, line int) (ast.Stmt, error) {
	if len(postfix) == 0 {
		return nil, errors.NewMalformedExpression("EMPTY_STATEMENT", "statement has no tokens").WithLine(line)
	}

	last := postfix[len(postfix)-1]
	if last.Kind != token.KindAssign {
		x, err := Fold(postfix)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Pos: ast.Pos{Line: line}, X: x}, nil
	}

	var stack ValueStack
	for _, tok := range postfix[:len(postfix)-1] {
		if err := stack.Apply(tok); err != nil {
			return nil, err
		}
	}
	value, err := stack.Pop(last)
	if err != nil {
		return nil, err
	}
	target, err := stack.Pop(last)
	if err != nil {
		return nil, err
	}
	if stack.Len() != 0 {
		return nil, errors.NewMalformedExpression("UNCONSUMED_OPERANDS", "assignment leaves operands on the stack").
			WithLine(line).
			WithContext("left", stack.Len())
	}
	if !ast.IsAssignable(target) {
		return nil, errors.NewMalformedExpression("NOT_ASSIGNABLE", "assignment target is not a variable or array element").
			WithLine(line).
			WithToken(ast.String(target))
	}
	return &ast.Assign{Pos: ast.Pos{Line: line}, Target: target, Value: value}, nil
}

func single(stack *ValueStack, postfix []token.Token) (ast.Expr, error) {
	line := 0
	if len(postfix) > 0 {
		line = postfix[0].Line
	}
	switch stack.Len() {
	case 0:
		return nil, errors.NewMalformedExpression("EMPTY_EXPRESSION", "expression has no operands").WithLine(line)
	case 1:
		return stack.Drain()[0], nil
	default:
		return nil, errors.NewMalformedExpression("UNCONSUMED_OPERANDS", "expression leaves more than one value").
			WithLine(line).
			WithContext("values", stack.Len())
	}
}

// Flatten walks a tree back into postfix tokens
func Flatten(e ast.Expr, line int) []token.Token {
	var out []token.Token
	flattenInto(&out, e, line)
	return out
}

func flattenInto(out *[]token.Token, e ast.Expr, line int) {
	switch t := e.(type) {
	case *ast.Operand:
		tok := token.Operand(t.Text)
		tok.Line = line
		*out = append(*out, tok)
	case *ast.Binary:
		flattenInto(out, t.Left, line)
		flattenInto(out, t.Right, line)
		tok := token.Operator(t.Op)
		tok.Line = line
		*out = append(*out, tok)
	case *ast.Access:
		flattenInto(out, t.Array, line)
		for _, idx := range t.Indices {
			flattenInto(out, idx, line)
		}
		tok := token.Access(len(t.Indices))
		tok.Line = line
		*out = append(*out, tok)
	}
}

// FlattenStatement walks an assignment or expression statement back into postfix tokens
func FlattenStatement(s ast.Stmt) []token.Token {
	switch t := s.(type) {
	case *ast.Assign:
		out := Flatten(t.Target, t.Line)
		out = append(out, Flatten(t.Value, t.Line)...)
		assign := token.Assign()
		assign.Line = t.Line
		return append(out, assign)
	case *ast.ExprStmt:
		return Flatten(t.X, t.Line)
	}
	return nil
}
