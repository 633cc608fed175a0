package reconstruct

import (
	"strings"

	"opzterm/ast"
)

type writer struct {
	indent string
	lines  []string
}

func (w *writer) emit(level int, text string) {
	w.lines = append(w.lines, strings.Repeat(w.indent, level)+text)
}

func (w *writer) block(b *ast.Block, level int) {
	for _, s := range b.Stmts {
		w.stmt(s, level)
	}
}

func (w *writer) stmt(s ast.Stmt, level int) {
	switch t := s.(type) {
	case *ast.Assign, *ast.ExprStmt:
		w.emit(level, simple(s)+";")
	case *ast.If:
		w.emit(level, "if ("+ast.String(t.Cond)+") {")
		w.block(t.Body, level+1)
		w.emit(level, "}")
	case *ast.While:
		w.emit(level, "while ("+ast.String(t.Cond)+") {")
		w.block(t.Body, level+1)
		w.emit(level, "}")
	case *ast.For:
		w.emit(level, "for ("+simple(t.Init)+"; "+ast.String(t.Cond)+"; "+simple(t.Incr)+") {")
		w.block(t.Body, level+1)
		w.emit(level, "}")
	case *ast.Block:
		w.emit(level, "{")
		w.block(t, level+1)
		w.emit(level, "}")
	}
}

// simple renders an assignment or expression statement without the semicolon
func simple(s ast.Stmt) string {
	switch t := s.(type) {
	case *ast.Assign:
		return ast.String(t.Target) + " = " + ast.String(t.Value)
	case *ast.ExprStmt:
		return ast.String(t.X)
	}
	return ""
}
