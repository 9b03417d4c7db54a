package aggregation

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/jsonstream/engine/internal/value"
)

// init registers the scalar-function set usable as a "scalar" node kind
// inside a summarize aggregation object (spec §4.10). Coercions go through
// spf13/cast, matching the rest of the engine's value-coercion strategy.
func init() {
	RegisterScalar("abs", unaryNumeric(math.Abs))
	RegisterScalar("round", unaryNumeric(math.Round))
	RegisterScalar("floor", unaryNumeric(math.Floor))
	RegisterScalar("ceil", unaryNumeric(math.Ceil))
	RegisterScalar("sqrt", unaryNumeric(math.Sqrt))

	RegisterScalar("upper", unaryString(strings.ToUpper))
	RegisterScalar("lower", unaryString(strings.ToLower))
	RegisterScalar("trim", unaryString(strings.TrimSpace))

	RegisterScalar("concat", func(args []value.Value) value.Value {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(cast.ToString(a.Native()))
		}
		return value.String(sb.String())
	})

	RegisterScalar("length", func(args []value.Value) value.Value {
		if len(args) == 0 {
			return value.Number(0)
		}
		switch args[0].Kind() {
		case value.KindString:
			s, _ := args[0].AsString()
			return value.Number(float64(len(s)))
		case value.KindArray:
			arr, _ := args[0].AsArray()
			return value.Number(float64(len(arr)))
		default:
			return value.Number(0)
		}
	})

	RegisterScalar("coalesce", func(args []value.Value) value.Value {
		for _, a := range args {
			if !a.IsNull() {
				return a
			}
		}
		return value.Null()
	})

	RegisterScalar("iff", func(args []value.Value) value.Value {
		if len(args) < 3 {
			return value.Null()
		}
		if args[0].Truthy() {
			return args[1]
		}
		return args[2]
	})

	RegisterScalar("now", func(args []value.Value) value.Value {
		return value.Number(float64(nowFunc().UnixMilli()))
	})

	RegisterScalar("unix_ms", func(args []value.Value) value.Value {
		if len(args) == 0 {
			return value.Number(float64(nowFunc().UnixMilli()))
		}
		switch args[0].Kind() {
		case value.KindNumber:
			n, _ := args[0].AsNumber()
			return value.Number(n)
		case value.KindString:
			s, _ := args[0].AsString()
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return value.Null()
			}
			return value.Number(float64(t.UnixMilli()))
		default:
			return value.Null()
		}
	})
}

// nowFunc is a package-level indirection for tests that need determinism.
var nowFunc = time.Now

// ScalarNames lists every registered scalar function name, for wiring into
// an expr-lang compilation environment (internal/compiler).
func ScalarNames() []string {
	names := make([]string, 0, len(scalars))
	for name := range scalars {
		names = append(names, name)
	}
	return names
}

// InvokeScalar calls the named scalar function directly, outside of an
// aggregation-expression tree (used for scalar calls in where/select/scan
// expressions, which are not part of a summarize aggregation object).
func InvokeScalar(name string, args []value.Value) (value.Value, bool) {
	fn, ok := scalars[name]
	if !ok {
		return value.Null(), false
	}
	return fn(args), true
}

func unaryNumeric(fn func(float64) float64) ScalarFunc {
	return func(args []value.Value) value.Value {
		if len(args) == 0 {
			return value.Number(0)
		}
		return value.Number(fn(cast.ToFloat64(args[0].Native())))
	}
}

func unaryString(fn func(string) string) ScalarFunc {
	return func(args []value.Value) value.Value {
		if len(args) == 0 {
			return value.String("")
		}
		return value.String(fn(cast.ToString(args[0].Native())))
	}
}
