// Package validator checks coded lexeme streams against the fixed C subset:
//
//	program    = includes main
//	includes   = { "#include" "<" id ">" }
//	main       = "int" "main" "(" ")" "{" statements "}"
//	statements = { declaration | print | return | if | while }
//
// Only the first mismatch is reported.
package validator

import (
	"fmt"
	"strings"

	"opzterm/errors"
	"opzterm/logging"
	"opzterm/scanner"
)

// Type is the grammar category of a decoded token
type Type string

const (
	TypeKeyword Type = "keyword"
	TypeID      Type = "id"
	TypeNum     Type = "num"
	TypeStr     Type = "str"
	TypeSymbol  Type = "symbol"
)

// Token is one decoded code
type Token struct {
	Line   int
	Code   string
	Lexeme string
	Type   Type
}

func (t Token) String() string {
	return fmt.Sprintf("%s (%s) @ %d", t.Lexeme, t.Type, t.Line)
}

// Decode maps coded lines back to tokens; the index of a line is its source line minus one
func Decode(lines []string) ([]Token, error) {
	var out []Token
	for i, line := range lines {
		for _, code := range strings.Fields(line) {
			tok, err := decode(code, i+1)
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
		}
	}
	return out, nil
}

// FromLexemes turns scanner output into tokens without going through text
func FromLexemes(lexemes []scanner.Lexeme) []Token {
	out := make([]Token, 0, len(lexemes))
	for _, lx := range lexemes {
		tok, err := decode(lx.Code, lx.Line)
		if err != nil {
			continue
		}
		if lx.Class == scanner.ClassIdentifier || lx.Class == scanner.ClassNumber || lx.Class == scanner.ClassConstant {
			tok.Lexeme = lx.Text
		}
		out = append(out, tok)
	}
	return out
}

func decode(code string, line int) (Token, error) {
	class, ok := scanner.ClassOf(code)
	if !ok {
		return Token{}, errors.NewUnknownToken(code, line).WithStage(errors.StageValidate)
	}
	tok := Token{Line: line, Code: code, Lexeme: code}
	switch class {
	case scanner.ClassIdentifier:
		tok.Type = TypeID
		return tok, nil
	case scanner.ClassNumber:
		tok.Type = TypeNum
		return tok, nil
	case scanner.ClassConstant:
		tok.Type = TypeStr
		return tok, nil
	}

	text, ok := scanner.Lookup(code)
	if !ok {
		return Token{}, errors.NewUnknownToken(code, line).WithStage(errors.StageValidate)
	}
	tok.Lexeme = text
	if class == scanner.ClassKeyword {
		tok.Type = TypeKeyword
	} else {
		tok.Type = TypeSymbol
	}
	return tok, nil
}

// Validator is a recursive-descent checker over decoded tokens
type Validator struct {
	logger logging.Logger
}

// New creates a validator
func New(logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Validator{logger: logger.WithComponent("validator")}
}

// ValidateLines decodes and validates coded text lines
func (v *Validator) ValidateLines(lines []string) error {
	tokens, err := Decode(lines)
	if err != nil {
		v.logger.ErrorCompile(err)
		return err
	}
	return v.Validate(tokens)
}

// Validate checks one program
func (v *Validator) Validate(tokens []Token) error {
	p := &parser{tokens: tokens}
	if err := p.program(); err != nil {
		if ce, ok := errors.AsCompileError(err); ok {
			ce.WithStage(errors.StageValidate)
		}
		v.logger.ErrorCompile(err)
		return err
	}
	v.logger.Debug("program is valid", logging.IntField("tokens", len(tokens)))
	return nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) lastLine() int {
	if len(p.tokens) == 0 {
		return 0
	}
	return p.tokens[len(p.tokens)-1].Line
}

func (p *parser) eof(expected string) error {
	err := errors.NewSyntaxError(p.lastLine(), expected, "end of input")
	err.Code = "UNEXPECTED_EOF"
	return err
}

// expect consumes one token with the given lexeme
func (p *parser) expect(lexeme string) error {
	tok, ok := p.current()
	if !ok {
		return p.eof("'" + lexeme + "'")
	}
	if tok.Lexeme != lexeme {
		return errors.NewSyntaxError(tok.Line, "'"+lexeme+"'", tok.Lexeme)
	}
	p.pos++
	return nil
}

// expectType consumes one token of any of the given types
func (p *parser) expectType(types ...Type) error {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	expected := strings.Join(names, " or ")

	tok, ok := p.current()
	if !ok {
		return p.eof(expected)
	}
	for _, t := range types {
		if tok.Type == t {
			p.pos++
			return nil
		}
	}
	return errors.NewSyntaxError(tok.Line, expected, tok.Lexeme).WithContext("type", string(tok.Type))
}

func (p *parser) sequence(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) lit(lexeme string) func() error {
	return func() error { return p.expect(lexeme) }
}

func (p *parser) typ(types ...Type) func() error {
	return func() error { return p.expectType(types...) }
}

func (p *parser) program() error {
	if err := p.includes(); err != nil {
		return err
	}
	if err := p.main(); err != nil {
		return err
	}
	if tok, ok := p.current(); ok {
		return errors.NewSyntaxError(tok.Line, "end of input", tok.Lexeme)
	}
	return nil
}

func (p *parser) includes() error {
	for {
		tok, ok := p.current()
		if !ok || tok.Lexeme != "#include" {
			return nil
		}
		err := p.sequence(p.lit("#include"), p.lit("<"), p.typ(TypeID, TypeNum), p.lit(">"))
		if err != nil {
			return err
		}
	}
}

func (p *parser) main() error {
	return p.sequence(
		p.lit("int"), p.lit("main"), p.lit("("), p.lit(")"), p.lit("{"),
		p.statements,
		p.lit("}"),
	)
}

func (p *parser) statements() error {
	for {
		tok, ok := p.current()
		if !ok || tok.Lexeme == "}" {
			return nil
		}
		if err := p.statement(tok); err != nil {
			return err
		}
	}
}

func (p *parser) statement(tok Token) error {
	value := p.typ(TypeID, TypeNum)

	switch tok.Lexeme {
	case "int":
		return p.sequence(p.lit("int"), p.typ(TypeID), p.lit("="), value, p.lit(";"))
	case "printf":
		return p.sequence(p.lit("printf"), p.lit("("), p.typ(TypeStr), p.lit(")"), p.lit(";"))
	case "return":
		return p.sequence(p.lit("return"), value, p.lit(";"))
	case "if":
		return p.sequence(
			p.lit("if"), p.lit("("), value, p.lit("+"), value, p.lit("=="), value, p.lit(")"),
			p.lit("return"), value, p.lit(";"),
		)
	case "while":
		return p.sequence(
			p.lit("while"), p.lit("("), value, p.lit("<"), value, p.lit(")"),
			p.lit("{"), p.statements, p.lit("}"),
		)
	}

	err := errors.NewSyntaxError(tok.Line, "statement", tok.Lexeme)
	err.Code = "UNEXPECTED_STATEMENT"
	return err
}
