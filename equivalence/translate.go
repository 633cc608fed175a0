package equivalence

import (
	"fmt"
	"strconv"
	"strings"

	"opzterm/ast"
	"opzterm/errors"
	"opzterm/token"
)

// prelude gives Lua the C view of values: 0 is false, comparisons yield 0 or 1,
// integer division truncates, missing variables read as 0 and arrays grow on write.
const prelude = `
setmetatable(V, {__index = function() return 0 end})
local function __t(x) return x ~= 0 and x ~= nil and x ~= false end
local function __b(c) if c then return 1 end return 0 end
local function __div(a, b)
  local q = a / b
  if b ~= 0 and a % 1 == 0 and b % 1 == 0 then
    if q >= 0 then return math.floor(q) end
    return math.ceil(q)
  end
  return q
end
local function __mod(a, b) return math.fmod(a, b) end
local function __get(t, ...)
  for _, k in ipairs({...}) do
    if type(t) ~= "table" then return 0 end
    t = rawget(t, k)
    if t == nil then return 0 end
  end
  return t
end
local function __set(t, v, ...)
  local keys = {...}
  if type(t) ~= "table" then t = {} end
  local cur = t
  for i = 1, #keys - 1 do
    local nxt = rawget(cur, keys[i])
    if type(nxt) ~= "table" then
      nxt = {}
      cur[keys[i]] = nxt
    end
    cur = nxt
  end
  cur[keys[#keys]] = v
  return t
end
`

// Translate renders a statement tree as a Lua chunk. Variables live in the V table.
func Translate(p *ast.Program) (string, error) {
	t := &translator{}
	t.sb.WriteString(prelude)
	if err := t.block(p.Body, 0); err != nil {
		return "", err
	}
	return t.sb.String(), nil
}

type translator struct {
	sb strings.Builder
}

func (t *translator) line(level int, text string) {
	t.sb.WriteString(strings.Repeat("  ", level))
	t.sb.WriteString(text)
	t.sb.WriteByte('\n')
}

func (t *translator) block(b *ast.Block, level int) error {
	for _, s := range b.Stmts {
		if err := t.stmt(s, level); err != nil {
			return err
		}
	}
	return nil
}

func (t *translator) stmt(s ast.Stmt, level int) error {
	switch n := s.(type) {
	case *ast.Assign:
		text, err := t.assign(n)
		if err != nil {
			return err
		}
		t.line(level, text)

	case *ast.ExprStmt:
		x, err := t.expr(n.X)
		if err != nil {
			return err
		}
		t.line(level, "local _ = "+x)

	case *ast.If:
		cond, err := t.expr(n.Cond)
		if err != nil {
			return err
		}
		t.line(level, "if __t("+cond+") then")
		if err := t.block(n.Body, level+1); err != nil {
			return err
		}
		t.line(level, "end")

	case *ast.While:
		cond, err := t.expr(n.Cond)
		if err != nil {
			return err
		}
		t.line(level, "while __t("+cond+") do")
		if err := t.block(n.Body, level+1); err != nil {
			return err
		}
		t.line(level, "end")

	case *ast.For:
		if err := t.stmt(n.Init, level); err != nil {
			return err
		}
		cond, err := t.expr(n.Cond)
		if err != nil {
			return err
		}
		t.line(level, "while __t("+cond+") do")
		if err := t.block(n.Body, level+1); err != nil {
			return err
		}
		if err := t.stmt(n.Incr, level+1); err != nil {
			return err
		}
		t.line(level, "end")

	case *ast.Block:
		t.line(level, "do")
		if err := t.block(n, level+1); err != nil {
			return err
		}
		t.line(level, "end")

	default:
		return unsupported(fmt.Sprintf("%T", s), s.SourceLine())
	}
	return nil
}

func (t *translator) assign(a *ast.Assign) (string, error) {
	value, err := t.expr(a.Value)
	if err != nil {
		return "", err
	}

	switch target := a.Target.(type) {
	case *ast.Operand:
		return variable(target.Text) + " = " + value, nil
	case *ast.Access:
		// a[i][j] = v становится V["a"] = __set(V["a"], v, i, j)
		root, indices := flattenAccess(target)
		op, ok := root.(*ast.Operand)
		if !ok {
			return "", unsupported(ast.String(a.Target), a.Line)
		}
		args := []string{variable(op.Text), value}
		for _, idx := range indices {
			x, err := t.expr(idx)
			if err != nil {
				return "", err
			}
			args = append(args, x)
		}
		return variable(op.Text) + " = __set(" + strings.Join(args, ", ") + ")", nil
	}
	return "", unsupported(ast.String(a.Target), a.Line)
}

func flattenAccess(a *ast.Access) (ast.Expr, []ast.Expr) {
	if inner, ok := a.Array.(*ast.Access); ok {
		root, indices := flattenAccess(inner)
		return root, append(indices, a.Indices...)
	}
	return a.Array, append([]ast.Expr(nil), a.Indices...)
}

var (
	arithmetic = map[string]string{"+": "+", "-": "-", "*": "*"}
	comparison = map[string]string{"<": "<", "<=": "<=", ">": ">", ">=": ">=", "==": "==", "!=": "~="}
	logical    = map[string]string{"&&": "and", "||": "or"}
)

func (t *translator) expr(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case *ast.Operand:
		return operand(n.Text)

	case *ast.Access:
		root, indices := flattenAccess(n)
		base, err := t.expr(root)
		if err != nil {
			return "", err
		}
		args := []string{base}
		for _, idx := range indices {
			x, err := t.expr(idx)
			if err != nil {
				return "", err
			}
			args = append(args, x)
		}
		return "__get(" + strings.Join(args, ", ") + ")", nil

	case *ast.Binary:
		left, err := t.expr(n.Left)
		if err != nil {
			return "", err
		}
		right, err := t.expr(n.Right)
		if err != nil {
			return "", err
		}
		if op, ok := arithmetic[n.Op]; ok {
			return "(" + left + " " + op + " " + right + ")", nil
		}
		if op, ok := comparison[n.Op]; ok {
			return "__b(" + left + " " + op + " " + right + ")", nil
		}
		if op, ok := logical[n.Op]; ok {
			return "__b(__t(" + left + ") " + op + " __t(" + right + "))", nil
		}
		switch n.Op {
		case "/":
			return "__div(" + left + ", " + right + ")", nil
		case "%":
			return "__mod(" + left + ", " + right + ")", nil
		}
		return "", unsupported(n.Op, 0)
	}
	return "", unsupported(fmt.Sprintf("%T", e), 0)
}

func operand(text string) (string, error) {
	switch {
	case text == "":
		return "", unsupported("empty operand", 0)
	case token.IsNumber(text):
		return "(" + text + ")", nil
	case len(text) >= 3 && strings.HasPrefix(text, "'"):
		v, _, _, err := strconv.UnquoteChar(text[1:len(text)-1], '\'')
		if err != nil {
			return "", unsupported(text, 0)
		}
		return strconv.Itoa(int(v)), nil
	case strings.HasPrefix(text, `"`):
		// C и Lua понимают одни и те же простые escape-последовательности
		if _, err := strconv.Unquote(text); err != nil {
			return "", unsupported(text, 0)
		}
		return text, nil
	case token.IsIdentifier(text):
		return variable(text), nil
	}
	return "", unsupported(text, 0)
}

func variable(name string) string {
	return `V["` + name + `"]`
}

func unsupported(what string, line int) error {
	return errors.NewSystemError("LUA_UNSUPPORTED", "construct cannot be translated to Lua").
		WithToken(what).
		WithLine(line).
		WithStage(errors.StageVerify)
}
