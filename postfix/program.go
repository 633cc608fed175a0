// Package postfix models the linear intermediate form and its wire codecs.
package postfix

import (
	"regexp"
	"strings"

	"opzterm/token"
)

// Line is one postfix statement or marker line
type Line struct {
	Tokens []token.Token
	Source int // originating source line, 0 if unknown
}

// Program is an ordered sequence of postfix lines preceded by verbatim boilerplate
type Program struct {
	Header []string
	Lines  []Line
}

// Tokens returns the program as one flat token stream
func (p *Program) Tokens() []token.Token {
	var out []token.Token
	for _, l := range p.Lines {
		out = append(out, l.Tokens...)
	}
	return out
}

// Strings renders every line with the given marker surface
func (p *Program) Strings(surface token.Surface) []string {
	out := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		out = append(out, token.Join(l.Tokens, surface))
	}
	return out
}

// Add appends a line; empty token lists are ignored
func (p *Program) Add(source int, tokens ...token.Token) {
	if len(tokens) == 0 {
		return
	}
	p.Lines = append(p.Lines, Line{Tokens: tokens, Source: source})
}

var mainHeaderRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]*\s+main\s*\(`)

// IsBoilerplate reports whether a source line is carried verbatim instead of translated:
// preprocessor directives, comments, using-declarations and the main() wrapper.
func IsBoilerplate(line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "#"),
		strings.HasPrefix(line, "//"),
		strings.HasPrefix(line, "using "),
		mainHeaderRe.MatchString(line):
		return true
	}
	return false
}

// IsMainHeader reports whether a line opens the main() wrapper
func IsMainHeader(line string) bool {
	return mainHeaderRe.MatchString(strings.TrimSpace(line))
}
