package postfix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opzterm/errors"
	"opzterm/token"
)

func sampleProgram(t *testing.T) *Program {
	t.Helper()
	p, err := ParseLines([]string{
		"#include <iostream>",
		"using namespace std;",
		"int main() {",
		"i 0 =",
		"i 10 < УЦП",
		"y b i 1 - 1 АЭМ 2 * =",
		"i i 1 + =",
		"КЦП",
		"a b - 8 > УПЛ",
		"x 1 =",
		"КБ",
	})
	require.NoError(t, err)
	return p
}

func TestParseLines(t *testing.T) {
	p := sampleProgram(t)

	assert.Equal(t, []string{"#include <iostream>", "using namespace std;", "int main() {"}, p.Header)
	require.Len(t, p.Lines, 8)

	access := p.Lines[2].Tokens[5]
	assert.Equal(t, token.KindAccess, access.Kind)
	assert.Equal(t, 1, access.Arity)
	assert.Equal(t, 6, p.Lines[2].Source)

	assert.True(t, p.Lines[1].Tokens[3].IsMarker(token.MarkerForCond))
	assert.True(t, p.Lines[7].Tokens[0].IsMarker(token.MarkerBlockClose))
}

func TestParseLinesErrors(t *testing.T) {
	t.Run("unknown token", func(t *testing.T) {
		_, err := ParseLines([]string{"a b $ ="})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrUnknownToken)
	})

	t.Run("access without arity", func(t *testing.T) {
		_, err := ParseLines([]string{"b i АЭМ"})
		require.Error(t, err)
		ce, ok := errors.AsCompileError(err)
		require.True(t, ok)
		assert.Equal(t, "ACCESS_WITHOUT_ARITY", ce.Code)
		assert.Equal(t, errors.StageDecode, ce.Stage)
	})
}

func TestTextCodecSurfaces(t *testing.T) {
	p := sampleProgram(t)

	cyr, err := NewTextCodec(token.SurfaceCyrillic).Encode(p)
	require.NoError(t, err)
	assert.Contains(t, string(cyr), "y b i 1 - 1 АЭМ 2 * =\n")
	assert.Contains(t, string(cyr), "a b - 8 > УПЛ\n")

	lat, err := NewTextCodec(token.SurfaceLatin).Encode(p)
	require.NoError(t, err)
	assert.Contains(t, string(lat), "y b i 1 - 1 ACCESS 2 * =\n")
	assert.Contains(t, string(lat), "a b - 8 > IF_COND\n")

	back, err := NewTextCodec(token.SurfaceCyrillic).Decode(lat)
	require.NoError(t, err)
	assert.Equal(t, p.Strings(token.SurfaceCyrillic), back.Strings(token.SurfaceCyrillic))
	assert.Equal(t, p.Header, back.Header)
}

func TestTextCodecRejectsOverlongLine(t *testing.T) {
	data := "a 1 =\n" + strings.Repeat("x ", 600*1024) + "\nb 2 =\n"

	_, err := NewTextCodec(token.SurfaceCyrillic).Decode([]byte(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCodec)
	ce, ok := errors.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, "LINE_TOO_LONG", ce.Code)
	assert.Equal(t, 2, ce.Line)
	assert.Equal(t, errors.StageDecode, ce.Stage)
	assert.NotNil(t, ce.Cause)
}

func TestCodecsPreserveTokens(t *testing.T) {
	p := sampleProgram(t)
	registry := NewRegistry(token.SurfaceLatin)

	for _, name := range []string{"text", "json", "binary"} {
		t.Run(name, func(t *testing.T) {
			codec, err := registry.Get(name)
			require.NoError(t, err)

			data, err := codec.Encode(p)
			require.NoError(t, err)

			back, err := codec.Decode(data)
			require.NoError(t, err)

			assert.Equal(t, p.Header, back.Header)
			require.Len(t, back.Lines, len(p.Lines))
			for i := range p.Lines {
				want, got := p.Lines[i].Tokens, back.Lines[i].Tokens
				require.Len(t, got, len(want), "line %d", i)
				for j := range want {
					assert.True(t, want[j].Equal(got[j]), "line %d token %d: %v vs %v", i, j, want[j], got[j])
				}
			}
		})
	}
}

func TestBinaryCodecRejectsGarbage(t *testing.T) {
	codec := NewBinaryCodec()

	_, err := codec.Decode([]byte("OP"))
	assert.ErrorIs(t, err, errors.ErrCodec)

	_, err = codec.Decode([]byte("XYZ\x01"))
	require.Error(t, err)
	ce, ok := errors.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, "BAD_MAGIC", ce.Code)

	data, err := codec.Encode(sampleProgram(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("OPZ\x01"), data[:4])

	_, err = codec.Decode(data[:len(data)-2])
	assert.ErrorIs(t, err, errors.ErrCodec)
}

func TestBinaryCodecEmptyProgram(t *testing.T) {
	codec := NewBinaryCodec()
	data, err := codec.Encode(&Program{})
	require.NoError(t, err)

	back, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Empty(t, back.Lines)
	assert.Empty(t, back.Header)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(token.SurfaceCyrillic)
	assert.Equal(t, []string{"binary", "json", "text"}, r.Names())

	c, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "text", c.Name())

	require.NoError(t, r.SetDefault("json"))
	c, err = r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	_, err = r.Get("yaml")
	assert.Error(t, err)
	assert.Error(t, r.Register(NewJSONCodec()))
}

func TestIsBoilerplate(t *testing.T) {
	for _, line := range []string{"#include <iostream>", "// comment", "using namespace std;", "int main() {", "int main(){"} {
		assert.True(t, IsBoilerplate(line), line)
	}
	for _, line := range []string{"x = 1;", "int x = 5;", "while (i < n) {", "}"} {
		assert.False(t, IsBoilerplate(line), line)
	}
}
