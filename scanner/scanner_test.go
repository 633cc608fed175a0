package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opzterm/errors"
)

const sampleSource = `#include <iostream>
int main() {
    int x = 10;
    // note
    x = x + 2.5;
    printf("hi");
}
`

func codes(lexemes []Lexeme) []string {
	out := make([]string, len(lexemes))
	for i, lx := range lexemes {
		out[i] = lx.Code
	}
	return out
}

func TestScanProgram(t *testing.T) {
	s := New(nil)
	lexemes, err := s.Scan(sampleSource)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"W30 O18 I1 O19",
		"W1 W27 R1 R2 R3",
		"W1 I2 O17 N1 R8",
		"",
		"I2 O17 I2 O12 N2 R8",
		"W28 R1 C1 R2 R8",
		"R4",
	}, CodedLines(lexemes))

	assert.Equal(t, Lexeme{Code: "I1", Text: "iostream", Class: ClassIdentifier, Line: 1}, lexemes[2])
	assert.Equal(t, Lexeme{Code: "C1", Text: `"hi"`, Class: ClassConstant, Line: 6}, lexemes[len(lexemes)-4])
}

func TestScanClassification(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"integer int", []string{"I1", "W1"}},
		{"double do", []string{"W4", "W10"}},
		{"a<=b", []string{"I1", "O3", "I2"}},
		{"a+=1", []string{"I1", "O7", "N1"}},
		{"s.x[0]", []string{"I1", "R9", "I2", "R5", "N1", "R6"}},
		{"3.14 7", []string{"N1", "N2"}},
		{"c = 'q';", []string{"I1", "O17", "C1", "R8"}},
		{"/* a */ b /* c */", []string{"I1"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			lexemes, err := New(nil).Scan(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes(lexemes))
		})
	}
}

func TestScanNumbering(t *testing.T) {
	s := New(nil)

	lexemes, err := s.Scan("a b a 1 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"I1", "I2", "I1", "N1", "N2"}, codes(lexemes))

	lexemes, err = s.Scan("c a 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"I3", "I1", "N3"}, codes(lexemes))

	s.Reset()
	lexemes, err = s.Scan("c 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"I1", "N1"}, codes(lexemes))

	// independent scanners never share numbering
	other, err := New(nil).Scan("z")
	require.NoError(t, err)
	assert.Equal(t, []string{"I1"}, codes(other))
}

func TestScanLineNumbers(t *testing.T) {
	lexemes, err := New(nil).Scan("/* one\ntwo */ x\n\ny")
	require.NoError(t, err)
	require.Len(t, lexemes, 2)
	assert.Equal(t, 2, lexemes[0].Line)
	assert.Equal(t, 4, lexemes[1].Line)
	assert.Equal(t, []string{"", "I1", "", "I2"}, CodedLines(lexemes))
}

func TestScanUnknownCharacter(t *testing.T) {
	_, err := New(nil).Scan("x = 1;\ny = a $ b + something_long;")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownToken)

	ce, ok := errors.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, 2, ce.Line)
	assert.Equal(t, "$ b + some", ce.Token)
	assert.Equal(t, errors.StageScan, ce.Stage)
}

func TestTables(t *testing.T) {
	assert.Len(t, Keywords, 30)
	assert.Len(t, Operators, 19)
	assert.Len(t, Delimiters, 9)

	text, ok := Lookup("W30")
	assert.True(t, ok)
	assert.Equal(t, "#include", text)

	text, ok = Lookup("O17")
	assert.True(t, ok)
	assert.Equal(t, "=", text)

	_, ok = Lookup("I1")
	assert.False(t, ok)

	c, ok := ClassOf("N12")
	assert.True(t, ok)
	assert.Equal(t, ClassNumber, c)
	assert.Equal(t, "Число", c.Name())

	for _, bad := range []string{"", "X1", "W", "I0", "I+1", "Wx"} {
		_, ok := ClassOf(bad)
		assert.False(t, ok, bad)
	}
}
