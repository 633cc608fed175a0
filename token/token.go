package token

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"opzterm/errors"
)

// Kind classifies a token
type Kind int

const (
	KindOperand  Kind = iota // identifier or literal
	KindOperator             // binary operator
	KindAssign               // =
	KindLParen               // (
	KindRParen               // )
	KindLBracket             // [
	KindRBracket             // ]
	KindComma                // ,
	KindMarker               // structural marker (УПЛ, УЦ, ...)
	KindAccess               // array access marker with explicit arity
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindOperand:
		return "operand"
	case KindOperator:
		return "operator"
	case KindAssign:
		return "assign"
	case KindLParen:
		return "lparen"
	case KindRParen:
		return "rparen"
	case KindLBracket:
		return "lbracket"
	case KindRBracket:
		return "rbracket"
	case KindComma:
		return "comma"
	case KindMarker:
		return "marker"
	case KindAccess:
		return "access"
	default:
		return "unknown"
	}
}

// Token is an immutable lexical unit. Line is the originating source line (0 if unknown).
type Token struct {
	Kind   Kind
	Text   string
	Marker Marker // only for KindMarker
	Arity  int    // only for KindAccess
	Line   int
}

// String returns the surface text of the token
func (t Token) String() string {
	if t.Kind == KindAccess {
		return fmt.Sprintf("%d %s", t.Arity, AccessCyrillic)
	}
	return t.Text
}

// Equal compares two tokens by content; line numbers and marker spelling are ignored
func (t Token) Equal(o Token) bool {
	if t.Kind == KindMarker && o.Kind == KindMarker {
		return t.Marker == o.Marker
	}
	return t.Kind == o.Kind && t.Text == o.Text && t.Marker == o.Marker && t.Arity == o.Arity
}

// IsOperator reports whether the token is a binary operator
func (t Token) IsOperator() bool {
	return t.Kind == KindOperator
}

// IsMarker reports whether the token is the given structural marker
func (t Token) IsMarker(m Marker) bool {
	return t.Kind == KindMarker && t.Marker == m
}

var (
	identRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	numberRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	stringRe = regexp.MustCompile(`^"([^"\\]|\\.)*"$`)
	charRe   = regexp.MustCompile(`^'([^'\\]|\\.)'$`)
)

// IsOperandText reports whether text is an identifier or a literal
func IsOperandText(text string) bool {
	return identRe.MatchString(text) || numberRe.MatchString(text) ||
		stringRe.MatchString(text) || charRe.MatchString(text)
}

// IsIdentifier reports whether text is an identifier
func IsIdentifier(text string) bool {
	return identRe.MatchString(text)
}

// IsNumber reports whether text is a numeric literal
func IsNumber(text string) bool {
	return numberRe.MatchString(text)
}

// Operand creates an operand token
func Operand(text string) Token {
	return Token{Kind: KindOperand, Text: text}
}

// Operator creates a binary operator token
func Operator(text string) Token {
	return Token{Kind: KindOperator, Text: text}
}

// Assign creates the assignment token
func Assign() Token {
	return Token{Kind: KindAssign, Text: "="}
}

// Access creates an access marker with the given arity
func Access(arity int) Token {
	return Token{Kind: KindAccess, Text: AccessCyrillic, Arity: arity}
}

// MarkerToken creates a structural marker token using its Cyrillic surface form
func MarkerToken(m Marker) Token {
	return Token{Kind: KindMarker, Text: m.Surface(SurfaceCyrillic), Marker: m}
}

// Classify turns one source or postfix word into a token.
// Words that are not operands, operators, brackets or markers are UnknownToken errors.
func Classify(text string, line int) (Token, error) {
	switch text {
	case "(":
		return Token{Kind: KindLParen, Text: text, Line: line}, nil
	case ")":
		return Token{Kind: KindRParen, Text: text, Line: line}, nil
	case "[":
		return Token{Kind: KindLBracket, Text: text, Line: line}, nil
	case "]":
		return Token{Kind: KindRBracket, Text: text, Line: line}, nil
	case ",":
		return Token{Kind: KindComma, Text: text, Line: line}, nil
	case "=":
		return Token{Kind: KindAssign, Text: text, Line: line}, nil
	}
	if _, ok := binaryOperators[text]; ok {
		return Token{Kind: KindOperator, Text: text, Line: line}, nil
	}
	if m, ok := LookupMarker(text); ok {
		if m == MarkerAccess {
			// арность приходит отдельным словом, см. Words
			return Token{Kind: KindAccess, Text: AccessCyrillic, Arity: -1, Line: line}, nil
		}
		// одна и та же метка в любом написании даёт один токен
		tok := MarkerToken(m)
		tok.Line = line
		return tok, nil
	}
	if IsOperandText(text) {
		return Token{Kind: KindOperand, Text: text, Line: line}, nil
	}
	return Token{}, errors.NewUnknownToken(text, line)
}

// Words classifies a postfix word sequence, merging "N АЭМ" pairs into one access token
func Words(words []string, line int) ([]Token, error) {
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		tok, err := Classify(w, line)
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindAccess {
			if len(tokens) == 0 || tokens[len(tokens)-1].Kind != KindOperand || !IsNumber(tokens[len(tokens)-1].Text) {
				return nil, errors.NewMalformedExpression("ACCESS_WITHOUT_ARITY", "access marker is not preceded by its arity").
					WithLine(line).WithToken(w)
			}
			arity, err := strconv.Atoi(tokens[len(tokens)-1].Text)
			if err != nil || arity < 1 {
				return nil, errors.NewMalformedExpression("BAD_ACCESS_ARITY", "access arity must be a positive integer").
					WithLine(line).WithToken(tokens[len(tokens)-1].Text)
			}
			tok.Arity = arity
			tokens[len(tokens)-1] = tok
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// Join renders tokens with single spaces using the given marker surface
func Join(tokens []Token, surface Surface) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch t.Kind {
		case KindAccess:
			parts = append(parts, fmt.Sprintf("%d %s", t.Arity, MarkerAccess.Surface(surface)))
		case KindMarker:
			parts = append(parts, t.Marker.Surface(surface))
		default:
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, " ")
}
