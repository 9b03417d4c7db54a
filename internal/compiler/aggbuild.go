package compiler

import (
	"fmt"

	"github.com/jsonstream/engine/internal/aggregation"
	"github.com/jsonstream/engine/internal/lang"
	"github.com/jsonstream/engine/internal/value"
	"github.com/jsonstream/engine/internal/window"
)

// CompileByExprs compiles a summarize `by` clause's group-key expressions.
func CompileByExprs(exprs []lang.Expr) ([]ValueExpr, error) {
	out := make([]ValueExpr, len(exprs))
	for i, e := range exprs {
		fn, err := CompileValue(e)
		if err != nil {
			return nil, fmt.Errorf("compiler: by[%d]: %w", i, err)
		}
		out[i] = fn
	}
	return out, nil
}

// CompileAggregationTemplate builds the aggregation.Template for a
// summarize aggregation object (spec §4.8, §4.10). windowName is the
// `over` alias, if any — bare identifiers matching it resolve to a
// WindowRef leaf instead of safeGet.
func CompileAggregationTemplate(obj *lang.ObjectLit, windowName string) (*aggregation.Template, error) {
	keys := make([]string, 0, len(obj.Entries))
	fields := make(map[string]*aggregation.Template, len(obj.Entries))
	for _, entry := range obj.Entries {
		if entry.Exclude != "" || entry.Spread != nil {
			return nil, fmt.Errorf("compiler: summarize aggregation object does not support spread/exclude entries")
		}
		if ident, ok := entry.Value.(*lang.Ident); ok && windowName != "" && ident.Name == windowName {
			fields[entry.Key] = &aggregation.Template{WindowRef: windowName}
			keys = append(keys, entry.Key)
			continue
		}
		t, err := compileAggTemplateExpr(entry.Value, windowName)
		if err != nil {
			return nil, fmt.Errorf("compiler: summarize field %q: %w", entry.Key, err)
		}
		fields[entry.Key] = t
		keys = append(keys, entry.Key)
	}
	return &aggregation.Template{ObjectKeys: keys, Object: fields}, nil
}

// compileAggTemplateExpr wraps one aggregation-object leaf expression in
// an Expression-bearing Template node.
func compileAggTemplateExpr(e lang.Expr, windowName string) (*aggregation.Template, error) {
	if lit, ok := constLiteral(e); ok {
		return &aggregation.Template{Static: &lit}, nil
	}
	expr, err := compileAggExpr(e, windowName)
	if err != nil {
		return nil, err
	}
	return &aggregation.Template{Expr: expr}, nil
}

// compileAggExpr classifies a summarize-argument expression into an
// aggregation-expression tree node (spec §4.2, §4.10): call expressions
// whose name is a registered aggregation become AggregationExpression
// nodes, registered scalar names become scalar nodes, literals become
// const leaves, bare identifiers and dotted field paths become safeGet
// leaves, and every other expression (binary/unary, index access, ...)
// becomes a generic leaf. Nesting (sum(exp(x)), exp(sum(x))) is handled by
// recursion.
func compileAggExpr(e lang.Expr, windowName string) (*aggregation.Expression, error) {
	if lit, ok := constLiteral(e); ok {
		return aggregation.NewConst(lit), nil
	}

	switch node := e.(type) {
	case *lang.Ident:
		return aggregation.NewSafeGet(node.Name), nil
	case *lang.FieldAccess, *lang.IndexAccess:
		path, err := fieldPath(node)
		if err == nil {
			return aggregation.NewSafeGet(path), nil
		}
		return compileGenericAggLeaf(e, windowName)
	case *lang.ParenExpr:
		return compileAggExpr(node.Inner, windowName)
	case *lang.CallExpr:
		switch {
		case aggregation.IsAggregation(node.Name):
			var children []*aggregation.Expression
			var constArgs []value.Value
			for _, arg := range node.Args {
				if lit, ok := constLiteral(arg); ok {
					constArgs = append(constArgs, lit)
					continue
				}
				child, err := compileAggExpr(arg, windowName)
				if err != nil {
					return nil, err
				}
				children = append(children, child)
			}
			return aggregation.NewAggregation(node.Name, children, constArgs)
		case aggregation.IsScalar(node.Name):
			children := make([]*aggregation.Expression, len(node.Args))
			for i, arg := range node.Args {
				child, err := compileAggExpr(arg, windowName)
				if err != nil {
					return nil, err
				}
				children[i] = child
			}
			return aggregation.NewScalar(node.Name, children), nil
		default:
			return nil, fmt.Errorf("%q is neither a registered aggregation nor a scalar function", node.Name)
		}
	default:
		return compileGenericAggLeaf(e, windowName)
	}
}

// compileGenericAggLeaf wraps an arbitrary expression (binary/unary/iff/
// index access on a computed base, etc.) as a single generically-compiled
// safeGet-style leaf: evaluated per document via the normal expr-lang
// path, with its result pushed into the tree as if it were a field.
func compileGenericAggLeaf(e lang.Expr, windowName string) (*aggregation.Expression, error) {
	fn, err := CompileValue(e)
	if err != nil {
		return nil, err
	}
	return aggregation.NewGenericLeaf(func(item value.Value) value.Value {
		return fn(item)
	}), nil
}

// constLiteral reports whether e is a literal expression and, if so,
// returns its constant value.
func constLiteral(e lang.Expr) (value.Value, bool) {
	switch node := e.(type) {
	case *lang.NumberLit:
		return value.Number(node.Value), true
	case *lang.StringLit:
		return value.String(node.Value), true
	case *lang.BoolLit:
		return value.Bool(node.Value), true
	case *lang.NullLit:
		return value.Null(), true
	}
	return value.Value{}, false
}

// fieldPath collapses a chain of FieldAccess nodes rooted at an Ident into
// a dotted path string. Any other node, IndexAccess included, is reported
// as not a dotted field path.
func fieldPath(e lang.Expr) (string, error) {
	switch node := e.(type) {
	case *lang.Ident:
		return node.Name, nil
	case *lang.FieldAccess:
		base, err := fieldPath(node.Base)
		if err != nil {
			return "", err
		}
		return base + "." + node.Name, nil
	default:
		return "", fmt.Errorf("not a dotted field path")
	}
}

// CompileWindowCall builds the window.Func for a summarize `over` clause
// (spec §4.11), evaluating the window call's argument literals to the
// constant forms window.Create expects.
func CompileWindowCall(wc *lang.WindowCall) (window.Func, error) {
	kind, err := windowKindFor(wc.Kind)
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, len(wc.Args))
	for i, a := range wc.Args {
		v, ok := constLiteral(a)
		if !ok {
			return nil, fmt.Errorf("compiler: window argument %d must be a literal", i)
		}
		switch v.Kind() {
		case value.KindNumber:
			n, _ := v.AsNumber()
			args[i] = n
		case value.KindString:
			s, _ := v.AsString()
			args[i] = s
		default:
			return nil, fmt.Errorf("compiler: window argument %d has unsupported type", i)
		}
	}
	return window.Create(kind, args)
}

func windowKindFor(tok lang.TokenType) (window.Kind, error) {
	switch tok {
	case lang.TUMBLING_WINDOW:
		return window.KindTumbling, nil
	case lang.TUMBLING_WINDOW_BY:
		return window.KindTumblingBy, nil
	case lang.HOPPING_WINDOW:
		return window.KindHopping, nil
	case lang.HOPPING_WINDOW_BY:
		return window.KindHoppingBy, nil
	case lang.SLIDING_WINDOW:
		return window.KindSliding, nil
	case lang.SLIDING_WINDOW_BY:
		return window.KindSlidingBy, nil
	case lang.COUNT_WINDOW:
		return window.KindCount, nil
	case lang.SESSION_WINDOW:
		return window.KindSession, nil
	default:
		return "", fmt.Errorf("compiler: unknown window kind %s", tok)
	}
}
