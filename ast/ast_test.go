package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func op(text string) *Operand { return &Operand{Text: text} }

func bin(o string, l, r Expr) *Binary { return &Binary{Op: o, Left: l, Right: r} }

func TestString(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"operand", op("x"), "x"},
		{"flat", bin("+", op("a"), op("b")), "a + b"},
		{"nested", bin(">", bin("-", op("a"), op("b")), op("8")), "(a - b) > 8"},
		{"right nested", bin("*", op("a"), bin("+", op("b"), op("c"))), "a * (b + c)"},
		{"access", &Access{Array: op("b"), Indices: []Expr{op("i"), bin("-", op("j"), op("1"))}}, "b[i, j - 1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.e))
		})
	}
}

func TestIsAssignable(t *testing.T) {
	assert.True(t, IsAssignable(op("x")))
	assert.True(t, IsAssignable(op("_y2")))
	assert.True(t, IsAssignable(&Access{Array: op("b"), Indices: []Expr{op("1")}}))
	assert.False(t, IsAssignable(op("1")))
	assert.False(t, IsAssignable(op(`"s"`)))
	assert.False(t, IsAssignable(bin("+", op("a"), op("b"))))
}

func TestNames(t *testing.T) {
	e := bin("+", &Access{Array: op("b"), Indices: []Expr{op("i")}}, bin("*", op("i"), op("2")))
	assert.Equal(t, []string{"b", "i"}, Names(e))
}

func TestAssignedNamesAndWalk(t *testing.T) {
	p := NewProgram()
	p.Body.Append(&Assign{Target: op("s"), Value: op("0")})
	p.Body.Append(&For{
		Init: &Assign{Target: op("i"), Value: op("0")},
		Cond: bin("<", op("i"), op("n")),
		Incr: &Assign{Target: op("i"), Value: bin("+", op("i"), op("1"))},
		Body: &Block{Stmts: []Stmt{
			&If{Cond: op("i"), Body: &Block{Stmts: []Stmt{
				&Assign{Target: &Access{Array: op("a"), Indices: []Expr{op("i")}}, Value: op("s")},
			}}},
			&ExprStmt{X: op("s")},
		}},
	})
	p.Body.Append(&While{Cond: op("k"), Body: &Block{Stmts: []Stmt{
		&Assign{Target: op("k"), Value: bin("-", op("k"), op("1"))},
	}}})

	assert.Equal(t, []string{"s", "i", "a", "k"}, AssignedNames(p))

	count := 0
	Walk(p.Body, func(Stmt) { count++ })
	// s, for, init, if, a[i], expr, incr, while, k
	assert.Equal(t, 9, count)
}

func TestBlockStack(t *testing.T) {
	b := &Block{}
	assert.Nil(t, b.Last())
	assert.Nil(t, b.PopLast())

	first := &ExprStmt{Pos: Pos{Line: 1}, X: op("a")}
	second := &ExprStmt{Pos: Pos{Line: 2}, X: op("b")}
	b.Append(first)
	b.Append(second)
	assert.Same(t, second, b.Last())
	assert.Same(t, second, b.PopLast())
	assert.Equal(t, 1, b.Last().SourceLine())
}
