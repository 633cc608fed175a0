package scanner

import "strconv"

// Class is the lexeme class letter that prefixes every code
type Class string

const (
	ClassKeyword    Class = "W"
	ClassIdentifier Class = "I"
	ClassOperator   Class = "O"
	ClassDelimiter  Class = "R"
	ClassNumber     Class = "N"
	ClassConstant   Class = "C"
)

// Name returns the human readable classification
func (c Class) Name() string {
	switch c {
	case ClassKeyword:
		return "Служебное слово"
	case ClassIdentifier:
		return "Идентификатор"
	case ClassOperator:
		return "Операция"
	case ClassDelimiter:
		return "Разделитель"
	case ClassNumber:
		return "Число"
	case ClassConstant:
		return "Константа"
	}
	return "unknown"
}

// Keywords are numbered W1..W30 in this order
var Keywords = []string{
	"int", "char", "float", "double", "return", "if", "else", "for", "while", "do",
	"switch", "case", "break", "continue", "default", "void", "static", "struct", "typedef", "union",
	"unsigned", "signed", "long", "short", "goto", "sizeof", "main", "printf", "scanf", "#include",
}

// Operators are numbered O1..O19; two-character forms come first
var Operators = []string{
	"==", "!=", "<=", ">=", "&&", "||", "+=", "-=", "*=", "/=", "%=",
	"+", "-", "*", "/", "%", "=", "<", ">",
}

// Delimiters are numbered R1..R9
var Delimiters = []string{"(", ")", "{", "}", "[", "]", ",", ";", "."}

var (
	keywordCodes   = index(ClassKeyword, Keywords)
	operatorCodes  = index(ClassOperator, Operators)
	delimiterCodes = index(ClassDelimiter, Delimiters)
	fixedTexts     = reverse(keywordCodes, operatorCodes, delimiterCodes)
)

func index(c Class, words []string) map[string]string {
	m := make(map[string]string, len(words))
	for i, w := range words {
		m[w] = string(c) + strconv.Itoa(i+1)
	}
	return m
}

func reverse(tables ...map[string]string) map[string]string {
	m := make(map[string]string)
	for _, t := range tables {
		for text, code := range t {
			m[code] = text
		}
	}
	return m
}

// KeywordCode returns the W-code of a keyword
func KeywordCode(word string) (string, bool) {
	code, ok := keywordCodes[word]
	return code, ok
}

// Lookup returns the text behind a keyword, operator or delimiter code.
// Identifier, number and constant codes are per-scan and are not found here.
func Lookup(code string) (string, bool) {
	text, ok := fixedTexts[code]
	return text, ok
}

// ClassOf returns the class of a code by its prefix letter
func ClassOf(code string) (Class, bool) {
	if code == "" {
		return "", false
	}
	c := Class(code[:1])
	switch c {
	case ClassKeyword, ClassIdentifier, ClassOperator, ClassDelimiter, ClassNumber, ClassConstant:
	default:
		return "", false
	}
	if n, err := strconv.Atoi(code[1:]); err != nil || n < 1 || code[1] == '+' {
		return "", false
	}
	return c, true
}
