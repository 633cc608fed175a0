package equivalence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opzterm/ast"
	"opzterm/errors"
	"opzterm/lowering"
	"opzterm/reconstruct"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := lowering.New(lowering.Options{}).Parse(strings.Split(src, "\n"))
	require.NoError(t, err)
	return p
}

func run(t *testing.T, src string, env Env) Snapshot {
	t.Helper()
	p := parse(t, src)
	snap, err := NewChecker(time.Second, nil).Run(context.Background(), p, env, ast.AssignedNames(p))
	require.NoError(t, err)
	return snap
}

const loopProgram = `s = 0;
for (i = 0; i < 10; i = i + 1) {
    a[i] = i * i;
    if (i % 2 == 0) {
        s = s + a[i];
    }
}
k = 7 / 2;`

func TestRunSemantics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		env  Env
		want Snapshot
	}{
		{
			name: "loop with arrays",
			src:  loopProgram,
			want: Snapshot{"s": "120", "i": "10", "k": "3"},
		},
		{
			name: "environment",
			src:  "y = b[1] + n;",
			env:  Env{"b": []int{5, 6}, "n": 10},
			want: Snapshot{"y": "16"},
		},
		{
			name: "comparisons yield integers",
			src:  "z = (a < b) + (a == a) * 2;\nw = a && 0 || b;",
			env:  Env{"a": 1, "b": 2},
			want: Snapshot{"z": "3", "w": "1"},
		},
		{
			name: "two dimensional",
			src:  "m[i, j] = 5;\nv = m[i, j] + m[1, 1] + m[0, 0];",
			env:  Env{"i": 1, "j": 1},
			want: Snapshot{"v": "10"},
		},
		{
			name: "missing variables read as zero",
			src:  "q = r + 1;\nif (r) {\n    u = 1;\n}",
			want: Snapshot{"q": "1", "u": "unset"},
		},
		{
			name: "truncating division",
			src:  "d = 0 - 7 / 2;\ne = 7.5 / 2;\nf = 7 % 3;",
			want: Snapshot{"d": "-3", "e": "3.75", "f": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := run(t, tt.src, tt.env)
			for name, want := range tt.want {
				assert.Equal(t, want, snap[name], name)
			}
		})
	}
}

func TestRoundTripIsEquivalent(t *testing.T) {
	for _, dialect := range []lowering.Dialect{lowering.DialectTagged, lowering.DialectLegacy} {
		t.Run(string(dialect), func(t *testing.T) {
			lines := strings.Split(loopProgram, "\n")
			l := lowering.New(lowering.Options{Dialect: dialect})

			original, err := l.Parse(lines)
			require.NoError(t, err)
			postfix, err := l.Lower(lines)
			require.NoError(t, err)
			rebuilt, err := reconstruct.New(reconstruct.DefaultOptions()).Rebuild(postfix)
			require.NoError(t, err)

			report, err := Equivalent(original, rebuilt, nil)
			require.NoError(t, err)
			assert.True(t, report.Equal, report.Diffs)
			assert.Equal(t, []string{"a", "i", "k", "s"}, report.Names)
			assert.Equal(t, "120", report.Right["s"])
		})
	}
}

func TestDifferentPrograms(t *testing.T) {
	report, err := Equivalent(parse(t, "x = 1;"), parse(t, "x = 2;\ny = 3;"), nil)
	require.NoError(t, err)
	assert.False(t, report.Equal)
	assert.Equal(t, []string{"x: 1 != 2", "y: unset != 3"}, report.Diffs)
}

func TestTimeout(t *testing.T) {
	p := parse(t, "while (1) {\n    x = x + 1;\n}")
	_, err := NewChecker(50*time.Millisecond, nil).Run(context.Background(), p, nil, []string{"x"})
	require.Error(t, err)

	ce, ok := errors.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, "TIMEOUT", ce.Code)
	assert.Equal(t, errors.StageVerify, ce.Stage)
}

func TestTranslate(t *testing.T) {
	chunk, err := Translate(parse(t, "for (i = 0; i != n; i = i + 1) {\n    a[i] = 'A';\n}"))
	require.NoError(t, err)
	assert.Contains(t, chunk, `V["i"] = (0)`)
	assert.Contains(t, chunk, `while __t(__b(V["i"] ~= V["n"])) do`)
	assert.Contains(t, chunk, `V["a"] = __set(V["a"], 65, V["i"])`)

	bad := &ast.Program{Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.Assign{Target: &ast.Operand{Text: "x"}, Value: &ast.Operand{Text: "@"}},
	}}}
	_, err = Translate(bad)
	ce, ok := errors.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, "LUA_UNSUPPORTED", ce.Code)
}

func TestBadEnvironment(t *testing.T) {
	_, err := NewChecker(0, nil).Run(context.Background(), parse(t, "x = 1;"), Env{"f": func() {}}, []string{"x"})
	ce, ok := errors.AsCompileError(err)
	require.True(t, ok)
	assert.Equal(t, "BAD_ENV", ce.Code)
}
