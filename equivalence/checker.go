// Package equivalence checks that two statement trees compute the same thing by
// running both on the embedded Lua VM and comparing the variables they assign.
package equivalence

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"opzterm/ast"
	"opzterm/errors"
	"opzterm/logging"
)

// Env holds initial variable values: numbers, strings, bools, slices (C-style
// zero-based arrays) and maps with scalar keys.
type Env map[string]interface{}

// Snapshot maps a variable name to the canonical text of its final value
type Snapshot map[string]string

// Report is the outcome of one comparison
type Report struct {
	Equal bool
	Names []string
	Left  Snapshot
	Right Snapshot
	Diffs []string
}

// Checker runs programs in fresh Lua states
type Checker struct {
	timeout time.Duration
	logger  logging.Logger
}

// NewChecker creates a checker; a zero timeout means two seconds
func NewChecker(timeout time.Duration, logger logging.Logger) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Checker{timeout: timeout, logger: logger.WithComponent("equivalence")}
}

// Run executes one program and returns the final values of the named variables
func (c *Checker) Run(ctx context.Context, p *ast.Program, env Env, names []string) (Snapshot, error) {
	chunk, err := Translate(p)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return nil, errors.WrapError(err, "LUA_INIT", "failed to open Lua library").WithStage(errors.StageVerify)
		}
	}
	L.SetContext(ctx)

	vars := L.NewTable()
	for name, value := range env {
		lv, err := toLua(L, value)
		if err != nil {
			return nil, errors.WrapError(err, "BAD_ENV", "environment value cannot be converted").
				WithToken(name).
				WithStage(errors.StageVerify)
		}
		vars.RawSetString(name, lv)
	}
	L.SetGlobal("V", vars)

	start := time.Now()
	if err := L.DoString(chunk); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewSystemError("TIMEOUT", "program did not finish in time").
				WithContext("timeout", c.timeout.String()).
				WithStage(errors.StageVerify)
		}
		return nil, errors.WrapError(err, "LUA_RUNTIME", "program failed on the Lua VM").WithStage(errors.StageVerify)
	}
	c.logger.Debug("program executed",
		logging.DurationField("elapsed", time.Since(start)),
		logging.IntField("variables", len(names)))

	snap := make(Snapshot, len(names))
	for _, name := range names {
		snap[name] = format(vars.RawGetString(name))
	}
	return snap, nil
}

// Equivalent runs both programs on the same environment and compares every variable either assigns
func (c *Checker) Equivalent(ctx context.Context, a, b *ast.Program, env Env) (*Report, error) {
	names := union(ast.AssignedNames(a), ast.AssignedNames(b))

	left, err := c.Run(ctx, a, env, names)
	if err != nil {
		return nil, err
	}
	right, err := c.Run(ctx, b, env, names)
	if err != nil {
		return nil, err
	}

	report := &Report{Equal: true, Names: names, Left: left, Right: right}
	for _, name := range names {
		if left[name] != right[name] {
			report.Equal = false
			report.Diffs = append(report.Diffs, fmt.Sprintf("%s: %s != %s", name, left[name], right[name]))
		}
	}
	if !report.Equal {
		c.logger.Warn("programs differ", logging.StringField("diffs", strings.Join(report.Diffs, "; ")))
	}
	return report, nil
}

// Equivalent compares two programs with a default checker
func Equivalent(a, b *ast.Program, env Env) (*Report, error) {
	return NewChecker(0, nil).Equivalent(context.Background(), a, b, env)
}

func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

// format renders a Lua value canonically; tables list their keys in order
func format(v lua.LValue) string {
	switch v.Type() {
	case lua.LTNil:
		return "unset"
	case lua.LTNumber:
		return strconv.FormatFloat(float64(v.(lua.LNumber)), 'g', -1, 64)
	case lua.LTString:
		return strconv.Quote(v.String())
	case lua.LTBool:
		return strconv.FormatBool(bool(v.(lua.LBool)))
	case lua.LTTable:
		type entry struct{ key, value string }
		var entries []entry
		v.(*lua.LTable).ForEach(func(k, val lua.LValue) {
			entries = append(entries, entry{format(k), format(val)})
		})
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = e.key + "=" + e.value
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return v.Type().String()
}

func toLua(L *lua.LState, value interface{}) (lua.LValue, error) {
	switch v := value.(type) {
	case nil:
		return lua.LNil, nil
	case lua.LValue:
		return v, nil
	case bool:
		if v {
			return lua.LNumber(1), nil
		}
		return lua.LNumber(0), nil
	case string:
		return lua.LString(v), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			item, err := toLua(L, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			t.RawSet(lua.LNumber(i), item)
		}
		return t, nil
	case reflect.Map:
		t := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			key, err := toLua(L, iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			item, err := toLua(L, iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			t.RawSet(key, item)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", value)
}
