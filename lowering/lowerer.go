// Package lowering turns structured source lines into postfix lines.
package lowering

import (
	"fmt"
	"strings"

	"opzterm/ast"
	"opzterm/errors"
	"opzterm/expression"
	"opzterm/logging"
	"opzterm/postfix"
	"opzterm/token"
)

// Dialect selects how block closers are written
type Dialect string

const (
	// DialectTagged writes an explicit closer per construct and a distinct for header
	DialectTagged Dialect = "tagged"
	// DialectLegacy writes the bare CTRL_FLOW marker for every closer and for header
	DialectLegacy Dialect = "legacy"
)

// ParseDialect validates a dialect name; empty means tagged
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectTagged:
		return DialectTagged, nil
	case DialectLegacy:
		return DialectLegacy, nil
	}
	return "", fmt.Errorf("unknown dialect '%s' (want %s or %s)", s, DialectTagged, DialectLegacy)
}

// Options configures a Lowerer
type Options struct {
	Dialect Dialect
	Logger  logging.Logger
}

// Lowerer converts source programs to postfix programs. It keeps no state between calls.
type Lowerer struct {
	dialect Dialect
	logger  logging.Logger
}

// New creates a lowerer
func New(opts Options) *Lowerer {
	if opts.Dialect == "" {
		opts.Dialect = DialectTagged
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNullLogger()
	}
	return &Lowerer{
		dialect: opts.Dialect,
		logger:  opts.Logger.WithComponent("lowering"),
	}
}

// Dialect returns the closer dialect in use
func (l *Lowerer) Dialect() Dialect {
	return l.dialect
}

// Lower parses source lines and emits the postfix program
func (l *Lowerer) Lower(lines []string) (*postfix.Program, error) {
	tree, err := l.Parse(lines)
	if err != nil {
		return nil, err
	}
	return l.Emit(tree), nil
}

// LowerSource is Lower over a whole source text
func (l *Lowerer) LowerSource(src string) (*postfix.Program, error) {
	return l.Lower(strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n"))
}

// Parse builds the statement tree without emitting postfix
func (l *Lowerer) Parse(lines []string) (*ast.Program, error) {
	tree, err := Parse(lines, l.logger)
	if err != nil {
		l.logger.ErrorCompile(err)
		return nil, err
	}
	return tree, nil
}

// Emit writes a statement tree as postfix lines
func (l *Lowerer) Emit(tree *ast.Program) *postfix.Program {
	e := &emitter{dialect: l.dialect, out: &postfix.Program{Header: append([]string(nil), tree.Header...)}}
	e.block(tree.Body)
	l.logger.Debug("lowered",
		logging.IntField("statements", len(tree.Body.Stmts)),
		logging.IntField("postfix_lines", len(e.out.Lines)),
		logging.StringField("dialect", string(l.dialect)))
	return e.out
}

// LinearizeExpression lowers a single infix expression or assignment, as typed in the REPL
func LinearizeExpression(src string) ([]token.Token, error) {
	var words []word
	for _, w := range SplitLine(src) {
		if w == ";" {
			continue
		}
		words = append(words, word{text: w, line: 1})
	}
	if len(words) == 0 {
		return nil, errors.NewMalformedExpression("EMPTY_EXPRESSION", "expression has no tokens").WithStage(errors.StageLinearize)
	}
	tokens, err := classify(words)
	if err != nil {
		return nil, err
	}
	out, err := expression.Linearize(tokens)
	if err != nil {
		return nil, err
	}
	// the output must fold back to exactly one expression or assignment
	if _, err := expression.FoldStatement(out, 1); err != nil {
		if ce, ok := errors.AsCompileError(err); ok {
			return nil, ce.WithStage(errors.StageLinearize)
		}
		return nil, err
	}
	return out, nil
}

type emitter struct {
	dialect Dialect
	out     *postfix.Program
}

func (e *emitter) marker(m token.Marker, line int) token.Token {
	if e.dialect == DialectLegacy {
		switch m {
		case token.MarkerForCond, token.MarkerWhileClose, token.MarkerForClose, token.MarkerBlockClose:
			m = token.MarkerCtrlFlow
		}
	}
	t := token.MarkerToken(m)
	t.Line = line
	return t
}

func closeLine(b *ast.Block, header int) int {
	if b.End > 0 {
		return b.End
	}
	return header
}

func (e *emitter) block(b *ast.Block) {
	for _, s := range b.Stmts {
		e.stmt(s)
	}
}

func (e *emitter) stmt(s ast.Stmt) {
	switch t := s.(type) {
	case *ast.Assign, *ast.ExprStmt:
		e.out.Add(s.SourceLine(), expression.FlattenStatement(s)...)

	case *ast.If:
		cond := append(expression.Flatten(t.Cond, t.Line), e.marker(token.MarkerIfCond, t.Line))
		e.out.Add(t.Line, cond...)
		e.block(t.Body)
		end := closeLine(t.Body, t.Line)
		e.out.Add(end, e.marker(token.MarkerBlockClose, end))

	case *ast.While:
		cond := append(expression.Flatten(t.Cond, t.Line), e.marker(token.MarkerCtrlFlow, t.Line))
		e.out.Add(t.Line, cond...)
		e.block(t.Body)
		end := closeLine(t.Body, t.Line)
		e.out.Add(end, e.marker(token.MarkerWhileClose, end))

	case *ast.For:
		e.out.Add(t.Line, expression.FlattenStatement(t.Init)...)
		cond := append(expression.Flatten(t.Cond, t.Line), e.marker(token.MarkerForCond, t.Line))
		e.out.Add(t.Line, cond...)
		e.block(t.Body)
		e.out.Add(t.Line, expression.FlattenStatement(t.Incr)...)
		end := closeLine(t.Body, t.Line)
		e.out.Add(end, e.marker(token.MarkerForClose, end))

	case *ast.Block:
		e.block(t)
	}
}
