// Package reconstruct rebuilds nested structured source from postfix programs.
package reconstruct

import (
	"strings"

	"opzterm/ast"
	"opzterm/logging"
	"opzterm/postfix"
	"opzterm/token"
)

// Options configures reconstruction and rendering
type Options struct {
	// Header and Footer wrap the rendered body
	Header []string
	Footer []string
	// Indent is the unit of indentation, four spaces by default
	Indent string
	// RecognizeFor turns legacy "init; while (cond) { ...; incr; }" back into for-loops
	RecognizeFor bool
	Logger       logging.Logger
}

// DefaultOptions returns the C++ wrapper expected by the downstream consumer
func DefaultOptions() Options {
	return Options{
		Header:       []string{"#include <iostream>", "using namespace std;", "int main() {"},
		Footer:       []string{"}"},
		Indent:       "    ",
		RecognizeFor: true,
	}
}

// Reconstructor turns postfix programs into statement trees and source text.
// Every call starts from fresh stacks.
type Reconstructor struct {
	opts   Options
	logger logging.Logger
}

// New creates a reconstructor
func New(opts Options) *Reconstructor {
	if opts.Indent == "" {
		opts.Indent = "    "
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNullLogger()
	}
	return &Reconstructor{opts: opts, logger: opts.Logger.WithComponent("reconstruct")}
}

// Rebuild replays a program line by line
func (r *Reconstructor) Rebuild(prog *postfix.Program) (*ast.Program, error) {
	m := NewMachine(r.opts.RecognizeFor, r.logger)
	last := 0
	for _, line := range prog.Lines {
		for _, tok := range line.Tokens {
			if tok.Line == 0 {
				tok.Line = line.Source
			}
			if err := m.Apply(tok); err != nil {
				r.logger.ErrorCompile(err)
				return nil, err
			}
		}
		if len(line.Tokens) > 0 {
			if err := m.EndLine(line.Source, line.Tokens[len(line.Tokens)-1]); err != nil {
				r.logger.ErrorCompile(err)
				return nil, err
			}
		}
		last = line.Source
	}
	return r.finish(m, last, prog.Header)
}

// RebuildStream replays one flat token stream with no line boundaries. A bare
// expression statement is only recognised right before a tagged closer or at the
// end of the stream.
func (r *Reconstructor) RebuildStream(tokens []token.Token) (*ast.Program, error) {
	m := NewMachine(r.opts.RecognizeFor, r.logger)
	last := 0
	for _, tok := range tokens {
		if err := m.Apply(tok); err != nil {
			r.logger.ErrorCompile(err)
			return nil, err
		}
		last = tok.Line
	}
	return r.finish(m, last, nil)
}

func (r *Reconstructor) finish(m *Machine, line int, header []string) (*ast.Program, error) {
	body, err := m.Finish(line)
	if err != nil {
		r.logger.ErrorCompile(err)
		return nil, err
	}
	r.logger.Debug("rebuilt",
		logging.IntField("statements", len(body.Stmts)),
		logging.IntField("max_depth", m.MaxDepth()))
	return &ast.Program{Header: header, Body: body}, nil
}

// Render prints a tree with the configured header and footer, body one level in
func (r *Reconstructor) Render(p *ast.Program) []string {
	out := append([]string(nil), r.opts.Header...)
	level := 0
	if len(r.opts.Header) > 0 {
		level = 1
	}
	w := &writer{indent: r.opts.Indent}
	w.block(p.Body, level)
	out = append(out, w.lines...)
	return append(out, r.opts.Footer...)
}

// RenderText is Render joined into one newline-terminated text
func (r *Reconstructor) RenderText(p *ast.Program) string {
	return strings.Join(r.Render(p), "\n") + "\n"
}
