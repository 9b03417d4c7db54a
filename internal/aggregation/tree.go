package aggregation

import (
	"github.com/jsonstream/engine/internal/safeget"
	"github.com/jsonstream/engine/internal/value"
)

// NodeKind identifies the action an Expression node performs on push
// (spec §4.10).
type NodeKind int

const (
	// KindSafeGet is a leaf that reads safeGet(item, Path) on every push.
	KindSafeGet NodeKind = iota
	// KindScalar recursively pushes into its children, then calls a pure
	// scalar function over their current results.
	KindScalar
	// KindAggregation wraps a stateful Instance; its children are
	// evaluated in item's context and fed into the instance.
	KindAggregation
	// KindConst is a leaf holding a literal value fixed at compile time,
	// e.g. a literal scalar-function operand. (Literal arguments of an
	// aggregation call, such as percentile's p, go to ConstArgs instead.)
	KindConst
	// KindGeneric is a leaf that delegates to an arbitrary compiled
	// expression (binary/unary/iff/index expressions that are not a bare
	// safeGet path), evaluated per document.
	KindGeneric
)

// ScalarFunc is a pure function over already-evaluated child results,
// registered by name for use inside a summarize aggregation object.
type ScalarFunc func(args []value.Value) value.Value

var scalars = map[string]ScalarFunc{}

// RegisterScalar adds a named pure scalar function usable inside
// aggregation-object leaves (spec §4.10 "scalar" node kind).
func RegisterScalar(name string, fn ScalarFunc) {
	scalars[name] = fn
}

// IsScalar reports whether name is a registered scalar function.
func IsScalar(name string) bool {
	_, ok := scalars[name]
	return ok
}

// Expression is one node of an aggregation-expression tree: the leaves of
// a summarize aggregation object template (spec §4.10).
type Expression struct {
	Kind NodeKind

	// KindSafeGet
	Path string

	// KindScalar
	ScalarName string
	Children   []*Expression

	// KindAggregation
	AggName string
	// AggChildren are evaluated in item's context and their results pushed
	// into Instance; only safeGet and scalar expressions are legal here.
	AggChildren []*Expression
	ConstArgs   []value.Value
	instance    Instance

	// KindGeneric
	Eval func(item value.Value) value.Value

	result value.Value
	changed bool
}

// NewSafeGet builds a safeGet leaf node.
func NewSafeGet(path string) *Expression {
	return &Expression{Kind: KindSafeGet, Path: path, result: value.Null()}
}

// NewConst builds a leaf whose result never changes after the first push.
func NewConst(v value.Value) *Expression {
	return &Expression{Kind: KindConst, result: v}
}

// NewGenericLeaf builds a leaf around an arbitrary compiled expression.
func NewGenericLeaf(eval func(item value.Value) value.Value) *Expression {
	return &Expression{Kind: KindGeneric, Eval: eval, result: value.Null()}
}

// NewScalar builds a scalar node over already-built children.
func NewScalar(name string, children []*Expression) *Expression {
	return &Expression{Kind: KindScalar, ScalarName: name, Children: children, result: value.Null()}
}

// NewAggregation builds an aggregation node and constructs its backing
// Instance immediately (per group clone, see Clone).
func NewAggregation(name string, children []*Expression, constArgs []value.Value) (*Expression, error) {
	inst, err := New(name, constArgs)
	if err != nil {
		return nil, err
	}
	return &Expression{
		Kind:        KindAggregation,
		AggName:     name,
		AggChildren: children,
		ConstArgs:   constArgs,
		instance:    inst,
		result:      value.Null(),
	}, nil
}

// Push feeds one document through the node (spec §4.10 per-kind push
// semantics).
func (e *Expression) Push(item value.Value) {
	switch e.Kind {
	case KindSafeGet:
		v := safeget.Get(item, e.Path)
		e.setResult(v)
	case KindScalar:
		args := make([]value.Value, len(e.Children))
		for i, c := range e.Children {
			c.Push(item)
			args[i] = c.Result()
		}
		fn, ok := scalars[e.ScalarName]
		if !ok {
			e.setResult(value.Null())
			return
		}
		e.setResult(fn(args))
	case KindAggregation:
		if len(e.AggChildren) == 0 {
			// A zero-argument aggregation such as count() sees one push per document.
			e.instance.Push(value.Null())
		}
		for _, c := range e.AggChildren {
			c.Push(item)
			e.instance.Push(c.Result())
		}
		e.setResult(e.instance.Result())
	case KindConst:
		// result is fixed at construction; nothing to do per push.
	case KindGeneric:
		e.setResult(e.Eval(item))
	}
}

func (e *Expression) setResult(v value.Value) {
	if !value.Equal(e.result, v) {
		e.changed = true
	}
	e.result = v
}

// Result returns the node's current scalar result.
func (e *Expression) Result() value.Value {
	return e.result
}

// Changed reports whether Result differs from the value observed at the
// last MarkChangeChecked (spec §4.10 "change tracking").
func (e *Expression) Changed() bool {
	return e.changed
}

// MarkChangeChecked clears the change flag after a consumer (emit-on-change
// policy, UI) has observed it.
func (e *Expression) MarkChangeChecked() {
	e.changed = false
	for _, c := range e.Children {
		c.MarkChangeChecked()
	}
	for _, c := range e.AggChildren {
		c.MarkChangeChecked()
	}
}

// Clone returns a fresh, independent copy of the subtree: aggregation
// nodes get a brand-new Instance; safeGet/scalar nodes reset to null
// (spec §4.8 step 3, "clone the template and install it under the key").
func (e *Expression) Clone() *Expression {
	clone := &Expression{
		Kind:       e.Kind,
		Path:       e.Path,
		ScalarName: e.ScalarName,
		AggName:    e.AggName,
		ConstArgs:  e.ConstArgs,
		Eval:       e.Eval,
		result:     value.Null(),
	}
	if e.Kind == KindConst {
		clone.result = e.result
	}
	for _, c := range e.Children {
		clone.Children = append(clone.Children, c.Clone())
	}
	for _, c := range e.AggChildren {
		clone.AggChildren = append(clone.AggChildren, c.Clone())
	}
	if e.instance != nil {
		clone.instance = e.instance.New()
	}
	return clone
}
