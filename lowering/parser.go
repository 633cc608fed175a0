package lowering

import (
	"strings"

	"opzterm/ast"
	"opzterm/errors"
	"opzterm/expression"
	"opzterm/logging"
	"opzterm/postfix"
	"opzterm/token"
)

// word is one split source word with its line number
type word struct {
	text string
	line int
}

var typeKeywords = map[string]bool{
	"int": true, "long": true, "short": true, "unsigned": true, "signed": true,
	"float": true, "double": true, "char": true, "bool": true, "auto": true, "const": true,
}

var unsupportedKeywords = map[string]bool{
	"else": true, "return": true, "do": true, "switch": true, "case": true,
	"break": true, "continue": true, "goto": true,
}

// parser builds a statement tree from split source words
type parser struct {
	words  []word
	pos    int
	logger logging.Logger

	mainOpen bool // the main() wrapper brace is still open
	mainSeen bool // the wrapper's opening brace was consumed
}

// Parse turns source lines into a program tree. Boilerplate lines become the header.
func Parse(lines []string, logger logging.Logger) (*ast.Program, error) {
	prog := ast.NewProgram()
	p := &parser{logger: logger}

	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if postfix.IsBoilerplate(line) {
			prog.Header = append(prog.Header, line)
			if postfix.IsMainHeader(line) {
				p.mainOpen = true
				p.mainSeen = strings.Contains(line, "{")
			}
			continue
		}
		for _, w := range SplitLine(line) {
			p.words = append(p.words, word{text: w, line: lineNo})
		}
	}

	if err := p.parseTop(prog.Body); err != nil {
		return nil, err
	}
	return prog, nil
}

func (p *parser) eof() bool {
	return p.pos >= len(p.words)
}

func (p *parser) peek() word {
	if p.eof() {
		return word{}
	}
	return p.words[p.pos]
}

func (p *parser) next() word {
	w := p.peek()
	p.pos++
	return w
}

func (p *parser) lastLine() int {
	if len(p.words) == 0 {
		return 0
	}
	if p.pos > 0 && p.pos <= len(p.words) {
		return p.words[p.pos-1].line
	}
	return p.words[len(p.words)-1].line
}

func (p *parser) parseTop(body *ast.Block) error {
	for !p.eof() {
		w := p.peek()
		switch {
		case w.text == "{" && p.mainOpen && !p.mainSeen:
			p.next()
			p.mainSeen = true
		case w.text == "}":
			if !p.mainOpen {
				return errors.NewMalformedExpression("STRAY_BRACE", "closing brace without an open block").
					WithLine(w.line).WithToken(w.text).WithStage(errors.StageLower)
			}
			p.next()
			p.mainOpen = false
		case w.text == "return":
			if err := p.skipFinalReturn(); err != nil {
				return err
			}
		default:
			if err := p.parseStatement(body); err != nil {
				return err
			}
		}
	}
	if p.mainOpen {
		p.logger.Warn("main body closed implicitly", logging.IntField("line", p.lastLine()))
	}
	return nil
}

// skipFinalReturn drops the "return ...;" that ends the top-level body; a return anywhere else is unsupported
func (p *parser) skipFinalReturn() error {
	w := p.next()
	rest := p.statementWords()
	if !p.eof() && p.peek().text != "}" {
		return errors.NewMalformedExpression("UNSUPPORTED_STATEMENT", "return is only allowed as the last statement of main").
			WithLine(w.line).WithToken(w.text).WithStage(errors.StageLower)
	}
	p.logger.Debug("final return dropped",
		logging.IntField("line", w.line),
		logging.IntField("words", len(rest)))
	return nil
}

// parseBlock reads statements up to the matching closing brace; the opening brace is already consumed
func (p *parser) parseBlock(b *ast.Block) error {
	for !p.eof() {
		if p.peek().text == "}" {
			b.End = p.next().line
			return nil
		}
		if err := p.parseStatement(b); err != nil {
			return err
		}
	}
	p.logger.Warn("block closed implicitly at end of input",
		logging.IntField("line", b.Line),
		logging.IntField("statements", len(b.Stmts)))
	return nil
}

// parseBody reads the body of a header: a braced block or one statement
func (p *parser) parseBody(header word) (*ast.Block, error) {
	body := &ast.Block{Pos: ast.Pos{Line: header.line}}
	if p.eof() || p.peek().text == "}" {
		return nil, errors.NewMalformedExpression("MISSING_BODY", "statement header has no body").
			WithLine(header.line).WithToken(header.text).WithStage(errors.StageLower)
	}
	if p.peek().text == "{" {
		p.next()
		if err := p.parseBlock(body); err != nil {
			return nil, err
		}
		return body, nil
	}
	if err := p.parseStatement(body); err != nil {
		return nil, err
	}
	body.End = p.lastLine()
	return body, nil
}

// parseStatement parses one statement and appends the result to b
func (p *parser) parseStatement(b *ast.Block) error {
	w := p.peek()
	switch {
	case w.text == ";":
		p.next()
		return nil

	case w.text == "{":
		// вложенный блок без заголовка: скобки не несут смысла
		p.next()
		inner := &ast.Block{Pos: ast.Pos{Line: w.line}}
		if err := p.parseBlock(inner); err != nil {
			return err
		}
		b.Stmts = append(b.Stmts, inner.Stmts...)
		return nil

	case w.text == "if" || w.text == "while":
		return p.parseConditional(b)

	case w.text == "for":
		return p.parseFor(b)

	case typeKeywords[w.text]:
		return p.parseDeclaration(b)

	case unsupportedKeywords[w.text]:
		return errors.NewMalformedExpression("UNSUPPORTED_STATEMENT", "statement is not supported").
			WithLine(w.line).WithToken(w.text).WithStage(errors.StageLower)
	}

	words := p.statementWords()
	if len(words) == 0 {
		return nil
	}
	stmt, err := buildStatement(words)
	if err != nil {
		return err
	}
	if es, ok := stmt.(*ast.ExprStmt); ok && !hasAccess(es.X) {
		return errors.NewMalformedExpression("NOT_A_STATEMENT", "expression statement must be an array access").
			WithLine(es.Line).WithToken(ast.String(es.X)).WithStage(errors.StageLower)
	}
	b.Append(stmt)
	return nil
}

// statementWords collects words up to ';', a brace or the end of the source line
func (p *parser) statementWords() []word {
	var out []word
	line := p.peek().line
	for !p.eof() {
		w := p.peek()
		if w.line != line || w.text == "{" || w.text == "}" {
			break
		}
		p.next()
		if w.text == ";" {
			break
		}
		out = append(out, w)
	}
	return out
}

// parenthesised reads "( ... )" and returns the inner words
func (p *parser) parenthesised(header word) ([]word, error) {
	if p.peek().text != "(" {
		return nil, errors.NewMalformedExpression("MISSING_PAREN", "header must be followed by '('").
			WithLine(header.line).WithToken(header.text).WithStage(errors.StageLower)
	}
	p.next()
	depth := 1
	var out []word
	for !p.eof() {
		w := p.next()
		switch w.text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return out, nil
			}
		}
		out = append(out, w)
	}
	return nil, errors.NewMalformedExpression("UNBALANCED_PAREN", "header is not closed").
		WithLine(header.line).WithToken(header.text).WithStage(errors.StageLower)
}

func (p *parser) parseConditional(b *ast.Block) error {
	header := p.next()
	inner, err := p.parenthesised(header)
	if err != nil {
		return err
	}
	cond, err := buildExpression(inner, header.line)
	if err != nil {
		return err
	}
	body, err := p.parseBody(header)
	if err != nil {
		return err
	}
	pos := ast.Pos{Line: header.line}
	if header.text == "if" {
		b.Append(&ast.If{Pos: pos, Cond: cond, Body: body})
	} else {
		b.Append(&ast.While{Pos: pos, Cond: cond, Body: body})
	}
	return nil
}

func (p *parser) parseFor(b *ast.Block) error {
	header := p.next()
	inner, err := p.parenthesised(header)
	if err != nil {
		return err
	}

	clauses := splitTopLevel(inner, ";")
	if len(clauses) != 3 {
		return errors.NewMalformedForHeader("FOR_CLAUSE_COUNT", "for header must have exactly three clauses").
			WithLine(header.line).
			WithContext("clauses", len(clauses)).
			WithStage(errors.StageLower)
	}
	for i, c := range clauses {
		if len(c) == 0 {
			return errors.NewMalformedForHeader("EMPTY_FOR_CLAUSE", "for header clause is empty").
				WithLine(header.line).
				WithContext("clause", i+1).
				WithStage(errors.StageLower)
		}
	}

	initWords := clauses[0]
	for len(initWords) > 0 && typeKeywords[initWords[0].text] {
		initWords = initWords[1:]
	}
	init, err := buildStatement(initWords)
	if err != nil {
		return forClauseError(err, header.line, "init")
	}
	cond, err := buildExpression(clauses[1], header.line)
	if err != nil {
		return forClauseError(err, header.line, "condition")
	}
	incr, err := buildStatement(clauses[2])
	if err != nil {
		return forClauseError(err, header.line, "increment")
	}

	body, err := p.parseBody(header)
	if err != nil {
		return err
	}
	b.Append(&ast.For{Pos: ast.Pos{Line: header.line}, Init: init, Cond: cond, Incr: incr, Body: body})
	return nil
}

func forClauseError(err error, line int, clause string) error {
	if ce, ok := errors.AsCompileError(err); ok {
		return ce.WithContext("clause", clause).WithLine(line)
	}
	return err
}

// parseDeclaration lowers "type a = e, b;" into assignments for initialised declarators
func (p *parser) parseDeclaration(b *ast.Block) error {
	for !p.eof() && typeKeywords[p.peek().text] {
		p.next()
	}
	words := p.statementWords()
	for _, decl := range splitTopLevel(words, ",") {
		if len(decl) == 0 {
			continue
		}
		if !containsTopLevel(decl, "=") {
			p.logger.Debug("declaration without initializer skipped",
				logging.IntField("line", decl[0].line),
				logging.StringField("name", decl[0].text))
			continue
		}
		stmt, err := buildStatement(decl)
		if err != nil {
			return err
		}
		b.Append(stmt)
	}
	return nil
}

// splitTopLevel splits words on sep outside of parentheses and brackets
func splitTopLevel(words []word, sep string) [][]word {
	var groups [][]word
	var cur []word
	depth := 0
	for _, w := range words {
		switch w.text {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
		}
		if w.text == sep && depth == 0 {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, w)
	}
	return append(groups, cur)
}

func containsTopLevel(words []word, text string) bool {
	return len(splitTopLevel(words, text)) > 1
}

func classify(words []word) ([]token.Token, error) {
	tokens := make([]token.Token, 0, len(words))
	for _, w := range words {
		tok, err := token.Classify(w.text, w.line)
		if err != nil {
			return nil, withStage(err)
		}
		if tok.Kind == token.KindMarker || tok.Kind == token.KindAccess {
			return nil, errors.NewUnknownToken(w.text, w.line).WithStage(errors.StageLower)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func buildExpression(words []word, line int) (ast.Expr, error) {
	tokens, err := classify(words)
	if err != nil {
		return nil, err
	}
	out, err := expression.Linearize(tokens)
	if err != nil {
		return nil, lineError(err, line)
	}
	for _, t := range out {
		if t.Kind == token.KindAssign {
			return nil, errors.NewMalformedExpression("ASSIGN_IN_EXPRESSION", "assignment cannot be used as a value").
				WithLine(line).WithStage(errors.StageLower)
		}
	}
	e, err := expression.Fold(out)
	if err != nil {
		return nil, lineError(err, line)
	}
	return e, nil
}

func buildStatement(words []word) (ast.Stmt, error) {
	line := 0
	if len(words) > 0 {
		line = words[0].line
	}
	tokens, err := classify(words)
	if err != nil {
		return nil, err
	}
	out, err := expression.Linearize(tokens)
	if err != nil {
		return nil, lineError(err, line)
	}
	stmt, err := expression.FoldStatement(out, line)
	if err != nil {
		return nil, lineError(err, line)
	}
	return stmt, nil
}

func hasAccess(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Expr) {
		if _, ok := n.(*ast.Access); ok {
			found = true
		}
	})
	return found
}

func lineError(err error, line int) error {
	if ce, ok := errors.AsCompileError(err); ok && ce.Line == 0 {
		ce.WithLine(line)
	}
	return withStage(err)
}

func withStage(err error) error {
	if ce, ok := errors.AsCompileError(err); ok && ce.Stage == "" {
		ce.WithStage(errors.StageLower)
	}
	return err
}
