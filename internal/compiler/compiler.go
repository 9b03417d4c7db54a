package compiler

import (
	"fmt"

	"github.com/jsonstream/engine/internal/lang"
	"github.com/jsonstream/engine/internal/value"
)

// BoolExpr is a compiled where-condition: bound over item only.
type BoolExpr func(item value.Value) bool

// ValueExpr is a compiled scalar expression: bound over item only.
type ValueExpr func(item value.Value) value.Value

// ScanBoolExpr and ScanValueExpr additionally bind state, the scan
// operator's per-step mutable mapping (spec §4.2, §4.7).
type ScanBoolExpr func(item, state value.Value) bool
type ScanValueExpr func(item, state value.Value) value.Value

// CompileWhere compiles a where-clause condition (spec §4.5). Truthiness
// follows spec §4.5/§8: a non-zero number, non-empty string, non-null
// object, or true all pass — not just literal bool results — so the
// condition is evaluated as a value.Value and checked with Truthy()
// rather than asserted to a Go bool.
func CompileWhere(e lang.Expr) (BoolExpr, error) {
	src, err := transpile(e, nil)
	if err != nil {
		return nil, err
	}
	prog, err := compileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compiler: where: %w", err)
	}
	return func(item value.Value) bool {
		result, err := runProgram(prog, item, value.Null())
		if err != nil {
			return false
		}
		return value.FromNative(result).Truthy()
	}, nil
}

// CompileValue compiles a general scalar expression, e.g. a summarize
// by-expression or an `emit every` argument, with no scan state in scope.
func CompileValue(e lang.Expr) (ValueExpr, error) {
	src, err := transpile(e, nil)
	if err != nil {
		return nil, err
	}
	prog, err := compileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compiler: value: %w", err)
	}
	return func(item value.Value) value.Value {
		result, err := runProgram(prog, item, value.Null())
		if err != nil {
			return value.Null()
		}
		return value.FromNative(result)
	}, nil
}

// CompileScanBool compiles a scan step condition, which may reference
// prior steps' state via `s1.x` (spec §4.7).
func CompileScanBool(e lang.Expr, stepNames []string) (ScanBoolExpr, error) {
	steps := toStepSet(stepNames)
	src, err := transpile(e, steps)
	if err != nil {
		return nil, err
	}
	prog, err := compileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compiler: scan condition: %w", err)
	}
	return func(item, state value.Value) bool {
		result, err := runProgram(prog, item, state)
		if err != nil {
			return false
		}
		return value.FromNative(result).Truthy()
	}, nil
}

// CompileScanValue compiles a scan statement's right-hand side expression.
func CompileScanValue(e lang.Expr, stepNames []string) (ScanValueExpr, error) {
	steps := toStepSet(stepNames)
	src, err := transpile(e, steps)
	if err != nil {
		return nil, err
	}
	prog, err := compileProgram(src)
	if err != nil {
		return nil, fmt.Errorf("compiler: scan value: %w", err)
	}
	return func(item, state value.Value) value.Value {
		result, err := runProgram(prog, item, state)
		if err != nil {
			return value.Null()
		}
		return value.FromNative(result)
	}, nil
}

func toStepSet(names []string) stepSet {
	s := make(stepSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// ObjectEntry is one compiled entry of a select object literal (spec §4.6).
type ObjectEntry struct {
	Key     string
	Value   ValueExpr // set for a static key:expr entry
	Spread  ValueExpr // set for a ...expr entry
	Exclude string    // set for a -ident entry
}

// CompileObject compiles a select object literal into an ordered list of
// entries, preserving source order so the caller can replay the
// last-write-wins / spread / exclude semantics at evaluation time.
func CompileObject(obj *lang.ObjectLit) ([]ObjectEntry, error) {
	out := make([]ObjectEntry, 0, len(obj.Entries))
	for _, entry := range obj.Entries {
		switch {
		case entry.Exclude != "":
			out = append(out, ObjectEntry{Exclude: entry.Exclude})
		case entry.Spread != nil:
			fn, err := CompileValue(entry.Spread)
			if err != nil {
				return nil, err
			}
			out = append(out, ObjectEntry{Spread: fn})
		default:
			fn, err := CompileValue(entry.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, ObjectEntry{Key: entry.Key, Value: fn})
		}
	}
	return out, nil
}

// EvalObject applies compiled entries against item, in source order,
// implementing spec §4.6's last-write-wins / spread / exclude algorithm.
func EvalObject(entries []ObjectEntry, item value.Value) value.Value {
	acc := value.NewObject()
	for _, e := range entries {
		switch {
		case e.Exclude != "":
			acc.Delete(e.Exclude)
		case e.Spread != nil:
			spread := e.Spread(item)
			if src, ok := spread.AsObject(); ok {
				for _, k := range src.Keys() {
					v, _ := src.Get(k)
					acc.Set(k, v)
				}
			}
		default:
			acc.Set(e.Key, e.Value(item))
		}
	}
	return value.FromObject(acc)
}
