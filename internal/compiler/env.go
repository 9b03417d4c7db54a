// Package compiler implements the transpiler / plan builder of spec §4.2:
// it walks the CST produced by internal/lang and compiles expression
// nodes into closures bound over item (and, for scan bodies, state),
// backed by github.com/expr-lang/expr.
package compiler

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/jsonstream/engine/internal/aggregation"
	"github.com/jsonstream/engine/internal/safeget"
	"github.com/jsonstream/engine/internal/value"
)

// baseOptions returns the expr-lang compile options shared by every
// compiled program: the safeGet/safeIndex/iff runtime helpers and the
// registered scalar functions, plus permissive undefined-variable
// handling matching this language's safeGet semantics (spec §4.2, §9).
func baseOptions() []expr.Option {
	opts := []expr.Option{
		expr.Function("safeGet", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("safeGet requires 2 arguments")
			}
			path, _ := params[1].(string)
			root := value.FromNative(params[0])
			return safeget.Get(root, path).Native(), nil
		}),
		expr.Function("safeIndex", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("safeIndex requires 2 arguments")
			}
			container := value.FromNative(params[0])
			key := value.FromNative(params[1])
			return safeget.Index(container, key).Native(), nil
		}),
		expr.Function("iff", func(params ...any) (any, error) {
			if len(params) != 3 {
				return nil, fmt.Errorf("iff requires 3 arguments")
			}
			if value.FromNative(params[0]).Truthy() {
				return params[1], nil
			}
			return params[2], nil
		}),
		// or2/and2 implement spec §4.5/§8's operand-returning logical
		// operators: `||` returns the left operand when truthy, otherwise
		// the right; `&&` returns the left operand when falsy, otherwise
		// the right. Neither coerces to bool, so `urgent || false` yields
		// `false` (not an error) when urgent is missing, and `5 || 0`
		// yields `5`.
		expr.Function("or2", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("or2 requires 2 arguments")
			}
			if value.FromNative(params[0]).Truthy() {
				return params[0], nil
			}
			return params[1], nil
		}),
		expr.Function("and2", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("and2 requires 2 arguments")
			}
			if !value.FromNative(params[0]).Truthy() {
				return params[0], nil
			}
			return params[1], nil
		}),
		expr.AllowUndefinedVariables(),
	}
	for _, name := range aggregation.ScalarNames() {
		n := name
		opts = append(opts, expr.Function(n, func(params ...any) (any, error) {
			args := make([]value.Value, len(params))
			for i, p := range params {
				args[i] = value.FromNative(p)
			}
			result, ok := aggregation.InvokeScalar(n, args)
			if !ok {
				return nil, fmt.Errorf("unknown function %q", n)
			}
			return result.Native(), nil
		}))
	}
	return opts
}

// compileProgram compiles src with the shared option set: the safeGet/
// safeIndex/iff/or2/and2 runtime helpers and the registered scalar
// functions. No expr.AsBool() is applied anywhere — this language's
// truthiness (spec §4.5) is broader than Go's bool, so callers evaluate
// the result as a value.Value and check Truthy() themselves.
func compileProgram(src string) (*vm.Program, error) {
	return expr.Compile(src, baseOptions()...)
}

func runProgram(p *vm.Program, item, state value.Value) (any, error) {
	env := map[string]any{
		"item":  item.Native(),
		"state": state.Native(),
	}
	return expr.Run(p, env)
}
