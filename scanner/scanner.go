// Package scanner turns C-subset source into coded lexemes: W keywords, I identifiers,
// O operators, R delimiters, N numbers and C constants.
package scanner

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"opzterm/errors"
	"opzterm/logging"
)

// Lexeme is one coded lexical unit
type Lexeme struct {
	Code  string
	Text  string
	Class Class
	Line  int
}

var lexemeRe = regexp.MustCompile(buildPattern())

func buildPattern() string {
	ops := make([]string, len(Operators))
	for i, op := range Operators {
		ops[i] = regexp.QuoteMeta(op)
	}
	delims := make([]string, len(Delimiters))
	for i, d := range Delimiters {
		delims[i] = regexp.QuoteMeta(d)
	}
	return `^(?:` +
		`(?P<space>\s+)` +
		`|(?P<comment>//[^\n]*|(?s:/\*.*?\*/))` +
		`|(?P<include>#\s*include\s*<\s*(?P<header>[^>\n]*?)\s*>)` +
		`|(?P<word>[A-Za-z_][A-Za-z0-9_]*)` +
		`|(?P<number>[0-9]+\.[0-9]+|[0-9]+)` +
		`|(?P<constant>"[^"\n]*"|'(?:[^'\\\n]|\\.)')` +
		`|(?P<operator>` + strings.Join(ops, "|") + `)` +
		`|(?P<delimiter>` + strings.Join(delims, "|") + `)` +
		`)`
}

var (
	groupSpace     = lexemeRe.SubexpIndex("space")
	groupComment   = lexemeRe.SubexpIndex("comment")
	groupInclude   = lexemeRe.SubexpIndex("include")
	groupHeader    = lexemeRe.SubexpIndex("header")
	groupWord      = lexemeRe.SubexpIndex("word")
	groupNumber    = lexemeRe.SubexpIndex("number")
	groupConstant  = lexemeRe.SubexpIndex("constant")
	groupOperator  = lexemeRe.SubexpIndex("operator")
	groupDelimiter = lexemeRe.SubexpIndex("delimiter")
)

// Scanner assigns codes. Identifiers keep the number given on first sight;
// every number and constant occurrence gets a fresh one. The numbering lives
// in the Scanner value and survives across Scan calls until Reset.
type Scanner struct {
	idents    map[string]int
	numbers   int
	constants int
	logger    logging.Logger
}

// New creates a scanner with empty numbering
func New(logger logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Scanner{
		idents: make(map[string]int),
		logger: logger.WithComponent("scanner"),
	}
}

// Reset clears the numbering state
func (s *Scanner) Reset() {
	s.idents = make(map[string]int)
	s.numbers = 0
	s.constants = 0
}

func (s *Scanner) identifier(name string) string {
	n, ok := s.idents[name]
	if !ok {
		n = len(s.idents) + 1
		s.idents[name] = n
	}
	return string(ClassIdentifier) + strconv.Itoa(n)
}

// Scan codes a whole source text
func (s *Scanner) Scan(src string) ([]Lexeme, error) {
	var out []Lexeme
	line := 1
	pos := 0

	emit := func(c Class, code, text string) {
		out = append(out, Lexeme{Code: code, Text: text, Class: c, Line: line})
	}

	for pos < len(src) {
		m := lexemeRe.FindStringSubmatchIndex(src[pos:])
		if m == nil {
			err := errors.NewUnknownToken(snippet(src[pos:]), line).
				WithStage(errors.StageScan).
				WithContext("offset", pos)
			s.logger.ErrorCompile(err)
			return nil, err
		}
		text := src[pos : pos+m[1]]
		group := func(g int) (string, bool) {
			if m[2*g] < 0 {
				return "", false
			}
			return src[pos+m[2*g] : pos+m[2*g+1]], true
		}

		switch {
		case m[2*groupSpace] >= 0, m[2*groupComment] >= 0:
			// пропускаем, но считаем строки

		case m[2*groupInclude] >= 0:
			// #include <x> раскладывается так, как его ждёт валидатор
			header, _ := group(groupHeader)
			code, _ := KeywordCode("#include")
			emit(ClassKeyword, code, "#include")
			emit(ClassOperator, operatorCodes["<"], "<")
			if header != "" {
				emit(ClassIdentifier, s.identifier(header), header)
			}
			emit(ClassOperator, operatorCodes[">"], ">")

		case m[2*groupWord] >= 0:
			if code, ok := KeywordCode(text); ok {
				emit(ClassKeyword, code, text)
			} else {
				emit(ClassIdentifier, s.identifier(text), text)
			}

		case m[2*groupNumber] >= 0:
			s.numbers++
			emit(ClassNumber, string(ClassNumber)+strconv.Itoa(s.numbers), text)

		case m[2*groupConstant] >= 0:
			s.constants++
			emit(ClassConstant, string(ClassConstant)+strconv.Itoa(s.constants), text)

		case m[2*groupOperator] >= 0:
			emit(ClassOperator, operatorCodes[text], text)

		case m[2*groupDelimiter] >= 0:
			emit(ClassDelimiter, delimiterCodes[text], text)
		}

		line += strings.Count(text, "\n")
		pos += m[1]
	}

	s.logger.Debug("scanned",
		logging.IntField("lexemes", len(out)),
		logging.IntField("lines", line))
	return out, nil
}

// snippet returns up to ten characters of the unscannable rest
func snippet(rest string) string {
	if utf8.RuneCountInString(rest) <= 10 {
		return rest
	}
	n := 0
	for i := range rest {
		if n == 10 {
			return rest[:i]
		}
		n++
	}
	return rest
}

// CodedLines renders one space-joined code line per source line, so the
// position of a line in the result is its source line number minus one.
// Lines without lexemes are empty strings.
func CodedLines(lexemes []Lexeme) []string {
	if len(lexemes) == 0 {
		return nil
	}
	last := lexemes[len(lexemes)-1].Line
	rows := make([][]string, last)
	for _, lx := range lexemes {
		rows[lx.Line-1] = append(rows[lx.Line-1], lx.Code)
	}
	out := make([]string, last)
	for i, r := range rows {
		out[i] = strings.Join(r, " ")
	}
	return out
}
