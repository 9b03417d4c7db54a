package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsonstream/engine/internal/lang"
)

// stepSet names the scan step identifiers in scope, so that a root
// identifier matching a step name rewrites against state instead of item
// (spec §4.2 "Inside scan, s1.x refers to state.s1.x").
type stepSet map[string]bool

// transpile renders e as expr-lang source text implementing the rewrite
// rules of spec §4.2.
func transpile(e lang.Expr, steps stepSet) (string, error) {
	switch n := e.(type) {
	case *lang.NumberLit:
		return strconv.FormatFloat(n.Value, 'g', -1, 64), nil
	case *lang.StringLit:
		return strconv.Quote(n.Value), nil
	case *lang.BoolLit:
		if n.Value {
			return "true", nil
		}
		return "false", nil
	case *lang.NullLit:
		return "nil", nil
	case *lang.Ident:
		return pathExpr(rootFor(n.Name, steps), n.Name), nil
	case *lang.FieldAccess:
		if path, root, ok := collapsePath(n, steps); ok {
			return pathExpr(root, path), nil
		}
		base, err := transpile(n.Base, steps)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("safeIndex(%s, %s)", base, strconv.Quote(n.Name)), nil
	case *lang.IndexAccess:
		base, err := transpile(n.Base, steps)
		if err != nil {
			return "", err
		}
		idx, err := transpile(n.Index, steps)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("safeIndex(%s, %s)", base, idx), nil
	case *lang.BinaryExpr:
		left, err := transpile(n.Left, steps)
		if err != nil {
			return "", err
		}
		right, err := transpile(n.Right, steps)
		if err != nil {
			return "", err
		}
		// || and && return an operand rather than coercing to bool (spec
		// §4.5, §8), so they're lowered to runtime helpers instead of
		// expr-lang's strict-bool infix operators.
		switch n.Op {
		case lang.OROR:
			return fmt.Sprintf("or2(%s, %s)", left, right), nil
		case lang.ANDAND:
			return fmt.Sprintf("and2(%s, %s)", left, right), nil
		}
		op, err := binaryOp(n.Op)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	case *lang.UnaryExpr:
		operand, err := transpile(n.Operand, steps)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("-(%s)", operand), nil
	case *lang.ParenExpr:
		inner, err := transpile(n.Inner, steps)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s)", inner), nil
	case *lang.IffExpr:
		cond, err := transpile(n.Cond, steps)
		if err != nil {
			return "", err
		}
		then, err := transpile(n.Then, steps)
		if err != nil {
			return "", err
		}
		els, err := transpile(n.Else, steps)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("iff(%s, %s, %s)", cond, then, els), nil
	case *lang.CallExpr:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			s, err := transpile(a, steps)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return fmt.Sprintf("%s(%s)", n.Name, strings.Join(parts, ", ")), nil
	case *lang.ArrayLit:
		parts := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			s, err := transpile(el, steps)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", ")), nil
	case *lang.ObjectLit:
		var parts []string
		for _, entry := range n.Entries {
			if entry.Spread != nil || entry.Exclude != "" {
				return "", fmt.Errorf("spread/exclude object entries are not supported in a generic expression position")
			}
			v, err := transpile(entry.Value, steps)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s: %s", strconv.Quote(entry.Key), v))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", ")), nil
	default:
		return "", fmt.Errorf("compiler: unsupported expression node %T", e)
	}
}

func binaryOp(tok lang.TokenType) (string, error) {
	switch tok {
	case lang.EQ:
		return "==", nil
	case lang.NEQ:
		return "!=", nil
	case lang.LT:
		return "<", nil
	case lang.GT:
		return ">", nil
	case lang.LE:
		return "<=", nil
	case lang.GE:
		return ">=", nil
	case lang.PLUS:
		return "+", nil
	case lang.MINUS:
		return "-", nil
	case lang.ASTERISK:
		return "*", nil
	case lang.SLASH:
		return "/", nil
	default:
		return "", fmt.Errorf("compiler: unsupported binary operator %s", tok)
	}
}

// matchIdIdent is the one scan-state field that isn't scoped under a step
// name: spec §4.7 defines a match state as "a mapping keyed by step name
// ... plus a matchId integer" assigned when the match starts. It's system
// bookkeeping, not a document field, so it resolves against state even
// though it isn't in steps.
const matchIdIdent = "matchId"

func rootFor(name string, steps stepSet) string {
	if steps != nil && (steps[name] || name == matchIdIdent) {
		return "state"
	}
	return "item"
}

func pathExpr(root, path string) string {
	return fmt.Sprintf("safeGet(%s, %s)", root, strconv.Quote(path))
}

// collapsePath walks a chain of FieldAccess nodes rooted at an Ident and
// returns the full dotted path plus which root ("item" or "state") it
// resolves against. Returns ok=false if the base isn't an Ident chain
// (e.g. a call or index expression), in which case the caller falls back
// to safeIndex against the transpiled base expression.
func collapsePath(e lang.Expr, steps stepSet) (path string, root string, ok bool) {
	var segs []string
	cur := e
	for {
		switch n := cur.(type) {
		case *lang.FieldAccess:
			segs = append([]string{n.Name}, segs...)
			cur = n.Base
		case *lang.Ident:
			segs = append([]string{n.Name}, segs...)
			return strings.Join(segs, "."), rootFor(n.Name, steps), true
		default:
			return "", "", false
		}
	}
}
