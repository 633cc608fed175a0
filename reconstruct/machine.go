package reconstruct

import (
	"opzterm/ast"
	"opzterm/errors"
	"opzterm/expression"
	"opzterm/logging"
	"opzterm/token"
)

// context tags of open blocks
const (
	tagIf    = "if"
	tagWhile = "while"
	tagFor   = "for"
)

type frame struct {
	tag  string
	node ast.Stmt
	body *ast.Block
	line int
}

// Machine replays postfix tokens one at a time. It owns a value stack of
// expression fragments and a context stack of open blocks; its depth is the
// number of open blocks and never goes below zero.
type Machine struct {
	values       expression.ValueStack
	ctx          []frame
	root         *ast.Block
	recognizeFor bool
	logger       logging.Logger
	maxDepth     int
}

// NewMachine creates a machine with empty stacks
func NewMachine(recognizeFor bool, logger logging.Logger) *Machine {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Machine{
		root:         &ast.Block{},
		recognizeFor: recognizeFor,
		logger:       logger,
	}
}

// Depth returns the number of open blocks
func (m *Machine) Depth() int {
	return len(m.ctx)
}

// MaxDepth returns the deepest nesting reached so far
func (m *Machine) MaxDepth() int {
	return m.maxDepth
}

// Pending returns the number of fragments on the value stack
func (m *Machine) Pending() int {
	return m.values.Len()
}

func (m *Machine) current() *ast.Block {
	if len(m.ctx) == 0 {
		return m.root
	}
	return m.ctx[len(m.ctx)-1].body
}

func (m *Machine) top() (frame, bool) {
	if len(m.ctx) == 0 {
		return frame{}, false
	}
	return m.ctx[len(m.ctx)-1], true
}

func (m *Machine) push(tag string, node ast.Stmt, body *ast.Block, line int) {
	m.current().Append(node)
	m.ctx = append(m.ctx, frame{tag: tag, node: node, body: body, line: line})
	if len(m.ctx) > m.maxDepth {
		m.maxDepth = len(m.ctx)
	}
}

func (m *Machine) pop(tok token.Token) (frame, error) {
	f, ok := m.top()
	if !ok {
		return frame{}, errors.NewStackUnderflow("context", tok.String(), tok.Line).WithStage(errors.StageReconstruct)
	}
	m.ctx = m.ctx[:len(m.ctx)-1]
	return f, nil
}

// Apply consumes one token
func (m *Machine) Apply(tok token.Token) error {
	err := m.apply(tok)
	if ce, ok := errors.AsCompileError(err); ok && ce.Stage == "" {
		ce.WithStage(errors.StageReconstruct)
	}
	return err
}

func (m *Machine) apply(tok token.Token) error {
	switch tok.Kind {
	case token.KindOperand, token.KindOperator, token.KindAccess:
		return m.values.Apply(tok)

	case token.KindAssign:
		value, err := m.values.Pop(tok)
		if err != nil {
			return err
		}
		target, err := m.values.Pop(tok)
		if err != nil {
			return err
		}
		if !ast.IsAssignable(target) {
			return errors.NewMalformedExpression("NOT_ASSIGNABLE", "assignment target is not a variable or array element").
				WithLine(tok.Line).WithToken(ast.String(target))
		}
		m.current().Append(&ast.Assign{Pos: ast.Pos{Line: tok.Line}, Target: target, Value: value})
		return nil

	case token.KindMarker:
		return m.marker(tok)
	}

	return errors.NewUnknownToken(tok.Text, tok.Line)
}

func (m *Machine) marker(tok token.Token) error {
	switch tok.Marker {
	case token.MarkerIfCond:
		cond, err := m.values.Pop(tok)
		if err != nil {
			return err
		}
		body := &ast.Block{Pos: ast.Pos{Line: tok.Line}}
		m.push(tagIf, &ast.If{Pos: ast.Pos{Line: tok.Line}, Cond: cond, Body: body}, body, tok.Line)
		return nil

	case token.MarkerForCond:
		cond, err := m.values.Pop(tok)
		if err != nil {
			return err
		}
		init := m.current().PopLast()
		if !isSimple(init) {
			return errors.NewMalformedForHeader("FOR_WITHOUT_INIT", "for header is not preceded by an init statement").
				WithLine(tok.Line).WithToken(tok.String())
		}
		body := &ast.Block{Pos: ast.Pos{Line: tok.Line}}
		m.push(tagFor, &ast.For{Pos: ast.Pos{Line: init.SourceLine()}, Init: init, Cond: cond, Body: body}, body, tok.Line)
		return nil

	case token.MarkerCtrlFlow:
		return m.ctrlFlow(tok)

	case token.MarkerWhileClose, token.MarkerForClose, token.MarkerBlockClose:
		if err := m.flushFragment(tok.Line); err != nil {
			return err
		}
		want := map[token.Marker]string{
			token.MarkerWhileClose: tagWhile,
			token.MarkerForClose:   tagFor,
			token.MarkerBlockClose: tagIf,
		}[tok.Marker]
		f, ok := m.top()
		if !ok {
			return errors.NewStackUnderflow("context", tok.String(), tok.Line)
		}
		if f.tag != want {
			return errors.NewMalformedExpression("CLOSER_MISMATCH", "closing marker does not match the innermost block").
				WithLine(tok.Line).
				WithToken(tok.String()).
				WithContext("open", f.tag).
				WithContext("closer", want)
		}
		return m.close(tok)
	}

	return errors.NewMalformedExpression("MARKER_OUT_OF_PLACE", "marker cannot appear here").
		WithLine(tok.Line).WithToken(tok.String())
}

// ctrlFlow resolves the overloaded marker: for close, then while header, then block close.
// A pending condition fragment always means a while header, even inside a for body.
func (m *Machine) ctrlFlow(tok token.Token) error {
	if f, ok := m.top(); ok && f.tag == tagFor && m.values.Len() == 0 {
		return m.close(tok)
	}
	if m.values.Len() > 0 {
		cond, err := m.values.Pop(tok)
		if err != nil {
			return err
		}
		body := &ast.Block{Pos: ast.Pos{Line: tok.Line}}
		m.push(tagWhile, &ast.While{Pos: ast.Pos{Line: tok.Line}, Cond: cond, Body: body}, body, tok.Line)
		return nil
	}
	return m.close(tok)
}

func (m *Machine) close(tok token.Token) error {
	f, err := m.pop(tok)
	if err != nil {
		return err
	}
	f.body.End = tok.Line

	switch f.tag {
	case tagFor:
		loop := f.node.(*ast.For)
		incr := loop.Body.PopLast()
		if !isSimple(incr) {
			return errors.NewMalformedForHeader("FOR_WITHOUT_INCREMENT", "for body does not end with an increment statement").
				WithLine(tok.Line).WithToken(tok.String())
		}
		loop.Incr = incr
	case tagWhile:
		// только для голого УЦ: в тегированном потоке for размечен явно
		if m.recognizeFor && tok.IsMarker(token.MarkerCtrlFlow) {
			m.promoteFor()
		}
	}

	m.logger.Debug("block closed",
		logging.StringField("tag", f.tag),
		logging.IntField("line", tok.Line),
		logging.IntField("depth", len(m.ctx)))
	return nil
}

// promoteFor rewrites "v = a; while (c(v)) { ...; v = b; }" into a for-loop
func (m *Machine) promoteFor() {
	parent := m.current()
	n := len(parent.Stmts)
	if n < 2 {
		return
	}
	loop, ok := parent.Stmts[n-1].(*ast.While)
	if !ok || len(loop.Body.Stmts) == 0 {
		return
	}
	init, ok := parent.Stmts[n-2].(*ast.Assign)
	if !ok {
		return
	}
	incr, ok := loop.Body.Last().(*ast.Assign)
	if !ok {
		return
	}
	v, ok := init.Target.(*ast.Operand)
	if !ok {
		return
	}
	if w, ok := incr.Target.(*ast.Operand); !ok || w.Text != v.Text {
		return
	}
	reads := false
	for _, name := range ast.Names(loop.Cond) {
		if name == v.Text {
			reads = true
		}
	}
	if !reads {
		return
	}

	loop.Body.PopLast()
	parent.Stmts = append(parent.Stmts[:n-2], &ast.For{
		Pos:  init.Pos,
		Init: init,
		Cond: loop.Cond,
		Incr: incr,
		Body: loop.Body,
	})
}

// flushFragment turns a single leftover fragment into a bare expression statement
func (m *Machine) flushFragment(line int) error {
	switch m.values.Len() {
	case 0:
		return nil
	case 1:
		x := m.values.Drain()[0]
		m.current().Append(&ast.ExprStmt{Pos: ast.Pos{Line: line}, X: x})
		return nil
	}
	return errors.NewMalformedExpression("UNCONSUMED_OPERANDS", "more than one fragment left without an operator").
		WithLine(line).
		WithContext("fragments", m.values.Len()).
		WithStage(errors.StageReconstruct)
}

// EndLine finishes one postfix line: a lone fragment after a statement line becomes
// an expression statement; anything else left over is an error.
func (m *Machine) EndLine(line int, last token.Token) error {
	if m.values.Len() == 0 {
		return nil
	}
	if last.Kind == token.KindMarker || last.Kind == token.KindAssign {
		return errors.NewMalformedExpression("UNCONSUMED_OPERANDS", "line leaves fragments on the value stack").
			WithLine(line).
			WithToken(last.String()).
			WithContext("fragments", m.values.Len()).
			WithStage(errors.StageReconstruct)
	}
	return m.flushFragment(line)
}

// Finish closes the stream: a lone leftover fragment becomes an expression statement,
// more than one is an error; open blocks are closed
func (m *Machine) Finish(line int) (*ast.Block, error) {
	if err := m.flushFragment(line); err != nil {
		return nil, err
	}
	for len(m.ctx) > 0 {
		f, _ := m.top()
		m.logger.Warn("block force-closed at end of stream",
			logging.StringField("tag", f.tag),
			logging.IntField("line", f.line))
		closer := token.MarkerToken(token.MarkerCtrlFlow)
		closer.Line = line
		if err := m.close(closer); err != nil {
			if ce, ok := errors.AsCompileError(err); ok && ce.Stage == "" {
				ce.WithStage(errors.StageReconstruct)
			}
			return nil, err
		}
	}
	return m.root, nil
}

func isSimple(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.Assign, *ast.ExprStmt:
		return true
	}
	return false
}
