package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opzterm/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		kind Kind
	}{
		{"x", KindOperand},
		{"_tmp1", KindOperand},
		{"42", KindOperand},
		{"3.14", KindOperand},
		{`"hi"`, KindOperand},
		{"'a'", KindOperand},
		{"+", KindOperator},
		{"&&", KindOperator},
		{"!=", KindOperator},
		{"=", KindAssign},
		{"(", KindLParen},
		{"]", KindRBracket},
		{",", KindComma},
		{"УПЛ", KindMarker},
		{"CTRL_FLOW", KindMarker},
		{"КБ", KindMarker},
		{"АЭМ", KindAccess},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tok, err := Classify(tt.text, 3)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, tok.Kind)
			assert.Equal(t, 3, tok.Line)
		})
	}
}

func TestClassifyUnknown(t *testing.T) {
	for _, text := range []string{"$", "a.b", "1x", "++"} {
		t.Run(text, func(t *testing.T) {
			_, err := Classify(text, 7)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrUnknownToken)
			ce, ok := errors.AsCompileError(err)
			require.True(t, ok)
			assert.Equal(t, 7, ce.Line)
			assert.Equal(t, text, ce.Token)
		})
	}
}

func TestWordsMergesAccessArity(t *testing.T) {
	tokens, err := Words([]string{"y", "b", "i", "j", "2", "АЭМ", "="}, 1)
	require.NoError(t, err)
	require.Len(t, tokens, 6)
	assert.Equal(t, KindAccess, tokens[4].Kind)
	assert.Equal(t, 2, tokens[4].Arity)
	assert.Equal(t, "y b i j 2 ACCESS =", Join(tokens, SurfaceLatin))
	assert.Equal(t, "y b i j 2 АЭМ =", Join(tokens, SurfaceCyrillic))
}

func TestWordsBadArity(t *testing.T) {
	tests := []struct {
		name  string
		words []string
		code  string
	}{
		{"missing", []string{"АЭМ"}, "ACCESS_WITHOUT_ARITY"},
		{"identifier", []string{"b", "i", "АЭМ"}, "ACCESS_WITHOUT_ARITY"},
		{"zero", []string{"b", "0", "АЭМ"}, "BAD_ACCESS_ARITY"},
		{"fraction", []string{"b", "i", "1.5", "АЭМ"}, "BAD_ACCESS_ARITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Words(tt.words, 2)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrMalformedExpression)
			ce, _ := errors.AsCompileError(err)
			assert.Equal(t, tt.code, ce.Code)
		})
	}
}

func TestPriority(t *testing.T) {
	p := func(text string) int {
		tok, err := Classify(text, 0)
		require.NoError(t, err)
		n, ok := Priority(tok)
		require.True(t, ok, text)
		return n
	}

	assert.Less(t, p("("), p("="))
	assert.Less(t, p("="), p("||"))
	assert.Less(t, p("||"), p("&&"))
	assert.Less(t, p("&&"), p("<"))
	assert.Equal(t, p("<"), p("!="))
	assert.Less(t, p("=="), p("-"))
	assert.Less(t, p("+"), p("%"))

	_, ok := Priority(Operand("x"))
	assert.False(t, ok)
	_, ok = Priority(MarkerToken(MarkerIfCond))
	assert.False(t, ok)
}

func TestMarkers(t *testing.T) {
	for m, want := range map[Marker][2]string{
		MarkerIfCond:     {"УПЛ", "IF_COND"},
		MarkerCtrlFlow:   {"УЦ", "CTRL_FLOW"},
		MarkerForCond:    {"УЦП", "FOR_COND"},
		MarkerWhileClose: {"КЦ", "WHILE_CLOSE"},
		MarkerForClose:   {"КЦП", "FOR_CLOSE"},
		MarkerBlockClose: {"КБ", "BLOCK_CLOSE"},
	} {
		assert.Equal(t, want[0], m.Surface(SurfaceCyrillic))
		assert.Equal(t, want[1], m.Surface(SurfaceLatin))

		back, ok := LookupMarker(want[0])
		assert.True(t, ok)
		assert.Equal(t, m, back)
		back, ok = LookupMarker(want[1])
		assert.True(t, ok)
		assert.Equal(t, m, back)
	}

	assert.True(t, MarkerBlockClose.IsCloser())
	assert.False(t, MarkerCtrlFlow.IsCloser())
	assert.Equal(t, "NONE", MarkerNone.String())
}

func TestMarkerSpellingsClassifyToOneToken(t *testing.T) {
	for _, pair := range [][2]string{
		{"УПЛ", "IF_COND"},
		{"УЦ", "CTRL_FLOW"},
		{"УЦП", "FOR_COND"},
		{"КЦ", "WHILE_CLOSE"},
		{"КЦП", "FOR_CLOSE"},
		{"КБ", "BLOCK_CLOSE"},
	} {
		t.Run(pair[1], func(t *testing.T) {
			cyr, err := Classify(pair[0], 1)
			require.NoError(t, err)
			lat, err := Classify(pair[1], 2)
			require.NoError(t, err)

			assert.Equal(t, pair[0], lat.Text)
			assert.Equal(t, 2, lat.Line)
			assert.True(t, cyr.Equal(lat))
			assert.True(t, MarkerToken(cyr.Marker).Equal(lat))
		})
	}

	assert.False(t, MarkerToken(MarkerForClose).Equal(MarkerToken(MarkerWhileClose)))
}

func TestParseSurface(t *testing.T) {
	tests := []struct {
		in      string
		want    Surface
		wantErr bool
	}{
		{"", SurfaceCyrillic, false},
		{"cyrillic", SurfaceCyrillic, false},
		{" Latin ", SurfaceLatin, false},
		{"greek", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSurface(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
