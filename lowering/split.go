package lowering

import (
	"regexp"
	"strings"

	"opzterm/token"
)

// wordRe matches one lexical word of a source line. Literals come first so
// their contents are never split; two-character operators precede their prefixes.
var wordRe = regexp.MustCompile(buildWordPattern())

func buildWordPattern() string {
	parts := []string{
		`//.*`,
		`"(?:[^"\\]|\\.)*"`,
		`'(?:[^'\\]|\\.)'`,
		`[0-9]+(?:\.[0-9]+)?`,
		`[A-Za-z_][A-Za-z0-9_]*`,
	}
	for _, op := range token.Operators() {
		parts = append(parts, regexp.QuoteMeta(op))
	}
	parts = append(parts, `[=()\[\],;{}]`, `\S`)
	return strings.Join(parts, "|")
}

// SplitLine splits one source line into words: brackets, commas, semicolons and
// braces stand alone, operators are matched longest first, a // comment ends the line.
func SplitLine(line string) []string {
	matches := wordRe.FindAllString(line, -1)
	words := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(m, "//") {
			break
		}
		words = append(words, m)
	}
	return words
}
