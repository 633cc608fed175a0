// Package ast holds the tree shared by lowering and reconstruction.
// The postfix stream is only the wire format; both directions build these nodes.
package ast

import (
	"strings"
)

// Node is implemented by every tree node
type Node interface {
	node()
}

// Expr is an expression node
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node
type Stmt interface {
	Node
	stmt()
	// SourceLine returns the originating line, 0 if unknown
	SourceLine() int
}

// Operand is an identifier or literal
type Operand struct {
	Text string
}

// Binary is a binary operation
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Access is an array element reference name[i1, i2, ...]
type Access struct {
	Array   Expr
	Indices []Expr
}

func (*Operand) node() {}
func (*Binary) node()  {}
func (*Access) node()  {}
func (*Operand) expr() {}
func (*Binary) expr()  {}
func (*Access) expr()  {}

// Pos carries the source line of a statement
type Pos struct {
	Line int
}

// SourceLine returns the line
func (p Pos) SourceLine() int { return p.Line }

// Assign is target = value
type Assign struct {
	Pos
	Target Expr
	Value  Expr
}

// ExprStmt is a bare expression statement (array access on its own line)
type ExprStmt struct {
	Pos
	X Expr
}

// If is an if statement without else
type If struct {
	Pos
	Cond Expr
	Body *Block
}

// While is a while loop
type While struct {
	Pos
	Cond Expr
	Body *Block
}

// For is a C-style for loop
type For struct {
	Pos
	Init Stmt
	Cond Expr
	Incr Stmt
	Body *Block
}

// Block is an ordered statement list
type Block struct {
	Pos
	Stmts []Stmt
	End   int // line of the closing brace, 0 if implicit
}

func (*Assign) node()   {}
func (*ExprStmt) node() {}
func (*If) node()       {}
func (*While) node()    {}
func (*For) node()      {}
func (*Block) node()    {}
func (*Assign) stmt()   {}
func (*ExprStmt) stmt() {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*For) stmt()      {}
func (*Block) stmt()    {}

// Append adds a statement to the block
func (b *Block) Append(s Stmt) {
	b.Stmts = append(b.Stmts, s)
}

// Last returns the last statement or nil
func (b *Block) Last() Stmt {
	if len(b.Stmts) == 0 {
		return nil
	}
	return b.Stmts[len(b.Stmts)-1]
}

// PopLast removes and returns the last statement or nil
func (b *Block) PopLast() Stmt {
	if len(b.Stmts) == 0 {
		return nil
	}
	last := b.Stmts[len(b.Stmts)-1]
	b.Stmts = b.Stmts[:len(b.Stmts)-1]
	return last
}

// Program is a translation unit: boilerplate header lines and a body
type Program struct {
	Header []string
	Body   *Block
}

// NewProgram creates an empty program
func NewProgram() *Program {
	return &Program{Body: &Block{}}
}

// IsAssignable reports whether e may appear on the left of =
func IsAssignable(e Expr) bool {
	switch t := e.(type) {
	case *Operand:
		return isIdent(t.Text)
	case *Access:
		return true
	}
	return false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// Names returns the identifiers read by an expression, in first-seen order
func Names(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	Inspect(e, func(n Expr) {
		if op, ok := n.(*Operand); ok && isIdent(op.Text) && !seen[op.Text] {
			seen[op.Text] = true
			names = append(names, op.Text)
		}
	})
	return names
}

// Inspect walks an expression in pre-order
func Inspect(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch t := e.(type) {
	case *Binary:
		Inspect(t.Left, fn)
		Inspect(t.Right, fn)
	case *Access:
		Inspect(t.Array, fn)
		for _, idx := range t.Indices {
			Inspect(idx, fn)
		}
	}
}

// Walk visits every statement of a block tree in source order
func Walk(b *Block, fn func(Stmt)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		fn(s)
		switch t := s.(type) {
		case *If:
			Walk(t.Body, fn)
		case *While:
			Walk(t.Body, fn)
		case *For:
			fn(t.Init)
			Walk(t.Body, fn)
			fn(t.Incr)
		case *Block:
			Walk(t, fn)
		}
	}
}

// AssignedNames returns every identifier that is the direct target of an assignment
func AssignedNames(p *Program) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(p.Body, func(s Stmt) {
		a, ok := s.(*Assign)
		if !ok {
			return
		}
		var name string
		switch t := a.Target.(type) {
		case *Operand:
			name = t.Text
		case *Access:
			if op, ok := t.Array.(*Operand); ok {
				name = op.Text
			}
		}
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}

// String renders an expression the way the reconstructor prints it
func String(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e, true)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr, top bool) {
	switch t := e.(type) {
	case *Operand:
		sb.WriteString(t.Text)
	case *Binary:
		if !top {
			sb.WriteByte('(')
		}
		writeExpr(sb, t.Left, false)
		sb.WriteString(" " + t.Op + " ")
		writeExpr(sb, t.Right, false)
		if !top {
			sb.WriteByte(')')
		}
	case *Access:
		writeExpr(sb, t.Array, false)
		sb.WriteByte('[')
		for i, idx := range t.Indices {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, idx, true)
		}
		sb.WriteByte(']')
	}
}
