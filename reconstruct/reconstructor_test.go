package reconstruct

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opzterm/ast"
	"opzterm/errors"
	"opzterm/lowering"
	"opzterm/postfix"
	"opzterm/token"
)

func parse(t *testing.T, lines ...string) *postfix.Program {
	t.Helper()
	p, err := postfix.ParseLines(lines)
	require.NoError(t, err)
	return p
}

func bare() *Reconstructor {
	return New(Options{RecognizeFor: true})
}

func rebuildBody(t *testing.T, lines ...string) []string {
	t.Helper()
	r := bare()
	tree, err := r.Rebuild(parse(t, lines...))
	require.NoError(t, err)
	return r.Render(tree)
}

func words(t *testing.T, line string) []token.Token {
	t.Helper()
	toks, err := token.Words(strings.Fields(line), 1)
	require.NoError(t, err)
	return toks
}

func TestRebuildExpressions(t *testing.T) {
	t.Run("parenthesised comparison", func(t *testing.T) {
		assert.Equal(t, []string{"z = (a - b) > 8;"}, rebuildBody(t, "z a b - 8 > ="))
	})

	t.Run("bare expression line", func(t *testing.T) {
		r := bare()
		tree, err := r.Rebuild(parse(t, "a b - 8 >"))
		require.NoError(t, err)
		require.Len(t, tree.Body.Stmts, 1)
		es := tree.Body.Stmts[0].(*ast.ExprStmt)
		assert.Equal(t, "(a - b) > 8", ast.String(es.X))
	})

	t.Run("precedence groups", func(t *testing.T) {
		assert.Equal(t, []string{"z = a + (b * c);"}, rebuildBody(t, "z a b c * + ="))
	})

	t.Run("two-index access", func(t *testing.T) {
		r := bare()
		tree, err := r.Rebuild(parse(t, "y b i j 2 АЭМ 2 * ="))
		require.NoError(t, err)

		assign := tree.Body.Stmts[0].(*ast.Assign)
		product := assign.Value.(*ast.Binary)
		access := product.Left.(*ast.Access)
		assert.Len(t, access.Indices, 2)
		assert.Equal(t, "b", ast.String(access.Array))
		assert.Equal(t, []string{"y = b[i, j] * 2;"}, r.Render(tree))
	})

	t.Run("access consumes exactly its arity", func(t *testing.T) {
		assert.Equal(t, []string{"a[k] = m[i, j];"}, rebuildBody(t, "a k 1 АЭМ m i j 2 АЭМ ="))
	})
}

func TestForLoopIsStructurallyIdempotent(t *testing.T) {
	src := []string{"for (i = 0; i < 10; i = i + 1) { y = b[i] * 2; }"}
	want := []string{
		"for (i = 0; i < 10; i = i + 1) {",
		"    y = b[i] * 2;",
		"}",
	}

	for _, dialect := range []lowering.Dialect{lowering.DialectTagged, lowering.DialectLegacy} {
		t.Run(string(dialect), func(t *testing.T) {
			prog, err := lowering.New(lowering.Options{Dialect: dialect}).Lower(src)
			require.NoError(t, err)

			r := bare()
			tree, err := r.Rebuild(prog)
			require.NoError(t, err)
			assert.Equal(t, want, r.Render(tree))

			loop := tree.Body.Stmts[0].(*ast.For)
			assert.Equal(t, "i = 0", simple(loop.Init))
			assert.Equal(t, "i < 10", ast.String(loop.Cond))
			assert.Equal(t, "i = i + 1", simple(loop.Incr))
			assert.Len(t, loop.Body.Stmts, 1)
		})
	}
}

func TestLegacyWhileWithoutForPattern(t *testing.T) {
	got := rebuildBody(t,
		"i 0 =",
		"i n < УЦ",
		"s s i + =",
		"УЦ",
	)
	// the body does not end by assigning i, so this stays a while
	assert.Equal(t, []string{"i = 0;", "while (i < n) {", "    s = s + i;", "}"}, got)

	r := New(Options{RecognizeFor: false})
	tree, err := r.Rebuild(parse(t, "i 0 =", "i 10 < УЦ", "i i 1 + =", "УЦ"))
	require.NoError(t, err)
	_, isWhile := tree.Body.Stmts[1].(*ast.While)
	assert.True(t, isWhile)
}

func TestMarkerDisambiguation(t *testing.T) {
	t.Run("non-empty value stack opens a while", func(t *testing.T) {
		m := NewMachine(true, nil)
		for _, tok := range words(t, "a b < УЦ") {
			require.NoError(t, m.Apply(tok))
		}
		assert.Equal(t, 1, m.Depth())
		assert.Equal(t, 0, m.Pending())
		_, ok := m.root.Last().(*ast.While)
		assert.True(t, ok)
	})

	t.Run("empty value stack closes the block", func(t *testing.T) {
		m := NewMachine(true, nil)
		for _, tok := range words(t, "x УПЛ y 1 = УЦ") {
			require.NoError(t, m.Apply(tok))
		}
		assert.Equal(t, 0, m.Depth())
		_, ok := m.root.Last().(*ast.If)
		assert.True(t, ok)
	})

	t.Run("for context pops exactly one entry", func(t *testing.T) {
		m := NewMachine(true, nil)
		for _, tok := range words(t, "x УПЛ i 0 = i 10 < FOR_COND y 1 = i i 1 + =") {
			require.NoError(t, m.Apply(tok))
		}
		require.Equal(t, 2, m.Depth())

		require.NoError(t, m.Apply(token.MarkerToken(token.MarkerCtrlFlow)))
		assert.Equal(t, 1, m.Depth())

		outer := m.root.Last().(*ast.If)
		loop := outer.Body.Last().(*ast.For)
		assert.Equal(t, "i = i + 1", simple(loop.Incr))
		assert.Equal(t, "y = 1", simple(loop.Body.Stmts[0]))
	})

	t.Run("while header inside tagged for body", func(t *testing.T) {
		got := rebuildBody(t,
			"i 0 =",
			"i n < УЦП",
			"j i =",
			"j 0 > УЦ",
			"j j 1 - =",
			"КЦ",
			"i i 1 + =",
			"КЦП",
		)
		assert.Equal(t, []string{
			"for (i = 0; i < n; i = i + 1) {",
			"    j = i;",
			"    while (j > 0) {",
			"        j = j - 1;",
			"    }",
			"}",
		}, got)
	})
}

func TestNestedProgram(t *testing.T) {
	src := []string{
		"#include <iostream>",
		"using namespace std;",
		"int main() {",
		"if ((a - b) > 8) {",
		"    while ((a + b) < 20) {",
		"        x = arr[i] + 3;",
		"    for (i = 0; i < 10; i = i + 1) {",
		"        y = b[i] * 2;",
		"    }",
		"}}",
	}
	want := []string{
		"#include <iostream>",
		"using namespace std;",
		"int main() {",
		"    if ((a - b) > 8) {",
		"        while ((a + b) < 20) {",
		"            x = arr[i] + 3;",
		"            for (i = 0; i < 10; i = i + 1) {",
		"                y = b[i] * 2;",
		"            }",
		"        }",
		"    }",
		"}",
	}

	for _, dialect := range []lowering.Dialect{lowering.DialectTagged, lowering.DialectLegacy} {
		t.Run(string(dialect), func(t *testing.T) {
			prog, err := lowering.New(lowering.Options{Dialect: dialect}).Lower(src)
			require.NoError(t, err)

			r := New(DefaultOptions())
			tree, err := r.Rebuild(prog)
			require.NoError(t, err)
			assert.Equal(t, want, r.Render(tree))
			assert.Equal(t, src[:3], tree.Header)
		})
	}
}

func TestDepthNeverNegativeAndEndsAtZero(t *testing.T) {
	src := []string{
		"while (i < n) {",
		"    if (a[i] > m) { m = a[i]; }",
		"    for (j = 0; j < i; j = j + 1) {",
		"        if (j == k) {",
		"            c[i, j] = 1;",
		"        }",
		"    }",
		"    i = i + 1;",
		"}",
		"b[m];",
	}

	for _, dialect := range []lowering.Dialect{lowering.DialectTagged, lowering.DialectLegacy} {
		t.Run(string(dialect), func(t *testing.T) {
			prog, err := lowering.New(lowering.Options{Dialect: dialect}).Lower(src)
			require.NoError(t, err)

			m := NewMachine(true, nil)
			for _, line := range prog.Lines {
				for _, tok := range line.Tokens {
					require.NoError(t, m.Apply(tok))
					assert.GreaterOrEqual(t, m.Depth(), 0)
				}
				require.NoError(t, m.EndLine(line.Source, line.Tokens[len(line.Tokens)-1]))
			}
			assert.Equal(t, 0, m.Depth())
			assert.Equal(t, 3, m.MaxDepth())

			_, err = m.Finish(0)
			require.NoError(t, err)
		})
	}
}

func TestRebuildStream(t *testing.T) {
	prog, err := lowering.New(lowering.Options{}).Lower([]string{
		"if (x > 0) {",
		"    y[x] = 1;",
		"    a[x];",
		"}",
	})
	require.NoError(t, err)

	r := bare()
	tree, err := r.RebuildStream(prog.Tokens())
	require.NoError(t, err)
	assert.Equal(t, []string{"if (x > 0) {", "    y[x] = 1;", "    a[x];", "}"}, r.Render(tree))

	t.Run("trailing expression", func(t *testing.T) {
		tree, err := r.RebuildStream(words(t, "a b - 8 >"))
		require.NoError(t, err)
		require.Len(t, tree.Body.Stmts, 1)
		es, ok := tree.Body.Stmts[0].(*ast.ExprStmt)
		require.True(t, ok)
		assert.Equal(t, "(a - b) > 8", ast.String(es.X))
		assert.Equal(t, []string{"(a - b) > 8;"}, r.Render(tree))
	})

	t.Run("two trailing fragments", func(t *testing.T) {
		_, err := r.RebuildStream(words(t, "x 1 = a b"))
		require.Error(t, err)
		ce, ok := errors.AsCompileError(err)
		require.True(t, ok)
		assert.Equal(t, "UNCONSUMED_OPERANDS", ce.Code)
		assert.Equal(t, errors.StageReconstruct, ce.Stage)
	})
}

func TestRebuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		kind  error
		code  string
	}{
		{"closer with no block", []string{"УЦ"}, errors.ErrStackUnderflow, "STACK_UNDERFLOW"},
		{"tagged closer with no block", []string{"x 1 =", "КБ"}, errors.ErrStackUnderflow, "STACK_UNDERFLOW"},
		{"operator without operands", []string{"a +"}, errors.ErrStackUnderflow, "STACK_UNDERFLOW"},
		{"access without array", []string{"i 1 АЭМ"}, errors.ErrStackUnderflow, "STACK_UNDERFLOW"},
		{"condition without value", []string{"УПЛ"}, errors.ErrStackUnderflow, "STACK_UNDERFLOW"},
		{"closer mismatch", []string{"x УПЛ", "КЦ"}, errors.ErrMalformedExpression, "CLOSER_MISMATCH"},
		{"leftover fragments", []string{"a b"}, errors.ErrMalformedExpression, "UNCONSUMED_OPERANDS"},
		{"leftover after marker", []string{"a b c УПЛ"}, errors.ErrMalformedExpression, "UNCONSUMED_OPERANDS"},
		{"literal target", []string{"1 x ="}, errors.ErrMalformedExpression, "NOT_ASSIGNABLE"},
		{"for header without init", []string{"i 10 < УЦП"}, errors.ErrMalformedForHeader, "FOR_WITHOUT_INIT"},
		{"for without increment", []string{"i 0 =", "i 10 < УЦП", "КЦП"}, errors.ErrMalformedForHeader, "FOR_WITHOUT_INCREMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bare().Rebuild(parse(t, tt.lines...))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			ce, ok := errors.AsCompileError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, errors.StageReconstruct, ce.Stage)
		})
	}
}

func TestForceCloseAtEnd(t *testing.T) {
	r := New(DefaultOptions())
	tree, err := r.Rebuild(parse(t, "x УПЛ", "y 1 ="))
	require.NoError(t, err)
	assert.Equal(t, "#include <iostream>\nusing namespace std;\nint main() {\n    if (x) {\n        y = 1;\n    }\n}\n", r.RenderText(tree))
}

func TestRenderOptions(t *testing.T) {
	r := New(Options{Header: []string{"void f() {"}, Footer: []string{"}"}, Indent: "\t"})
	tree, err := r.Rebuild(parse(t, "x 0 > УПЛ", "y 1 =", "КБ"))
	require.NoError(t, err)
	assert.Equal(t, []string{"void f() {", "\tif (x > 0) {", "\t\ty = 1;", "\t}", "}"}, r.Render(tree))
}
