package aggregation

import (
	"github.com/jsonstream/engine/internal/value"
)

// Template is a node of the aggregation object template: the parsed shape
// of a `summarize { ... }` aggregation object (spec §4.8, §4.10). Each
// node is either a static value, a nested object/array of further
// templates, a window-name reference, or an Expression leaf.
type Template struct {
	// Static holds a literal value, copied as-is into every result.
	Static *value.Value
	// WindowRef names the `over` window alias this leaf resolves to.
	WindowRef string
	// Expr is an aggregation-expression tree leaf.
	Expr *Expression
	// Object/Array hold nested templates, preserving shape and key order.
	ObjectKeys []string
	Object     map[string]*Template
	Array      []*Template
}

// Object is a live per-group instantiation of a Template: its Expression
// leaves carry independent state (spec §4.8 step 3/4, "AggregationObject").
type Object struct {
	template *Template
}

// NewObject installs a fresh per-group Object by cloning every Expression
// leaf in template.
func NewObject(template *Template) *Object {
	return &Object{template: cloneTemplate(template)}
}

func cloneTemplate(t *Template) *Template {
	if t == nil {
		return nil
	}
	out := &Template{Static: t.Static, WindowRef: t.WindowRef}
	if t.Expr != nil {
		out.Expr = t.Expr.Clone()
	}
	if t.Object != nil {
		out.Object = make(map[string]*Template, len(t.Object))
		out.ObjectKeys = append([]string{}, t.ObjectKeys...)
		for k, v := range t.Object {
			out.Object[k] = cloneTemplate(v)
		}
	}
	for _, v := range t.Array {
		out.Array = append(out.Array, cloneTemplate(v))
	}
	return out
}

// Push feeds doc into every Expression leaf reachable from the template
// (spec §4.8 step 4, "recursively feeds all leaf aggregations").
func (o *Object) Push(doc value.Value) {
	pushTemplate(o.template, doc)
}

func pushTemplate(t *Template, doc value.Value) {
	if t == nil {
		return
	}
	if t.Expr != nil {
		t.Expr.Push(doc)
		return
	}
	for _, v := range t.Object {
		pushTemplate(v, doc)
	}
	for _, v := range t.Array {
		pushTemplate(v, doc)
	}
}

// Result renders the current result: static literals are copied verbatim,
// window references resolve to windowVal, and expression leaves resolve
// to their current scalar result (spec §4.8 "Result shape").
func (o *Object) Result(windowVal value.Value) value.Value {
	return renderTemplate(o.template, windowVal)
}

func renderTemplate(t *Template, windowVal value.Value) value.Value {
	if t == nil {
		return value.Null()
	}
	if t.Static != nil {
		return *t.Static
	}
	if t.WindowRef != "" {
		return windowVal
	}
	if t.Expr != nil {
		return t.Expr.Result()
	}
	if t.Object != nil {
		obj := value.NewObject()
		for _, k := range t.ObjectKeys {
			obj.Set(k, renderTemplate(t.Object[k], windowVal))
		}
		return value.FromObject(obj)
	}
	if t.Array != nil {
		arr := make([]value.Value, len(t.Array))
		for i, v := range t.Array {
			arr[i] = renderTemplate(v, windowVal)
		}
		return value.Array(arr)
	}
	return value.Null()
}

// Changed reports whether any Expression leaf's result changed since the
// last MarkChangeChecked (spec §4.10, used by emit-on-change policies).
func (o *Object) Changed() bool {
	return templateChanged(o.template)
}

func templateChanged(t *Template) bool {
	if t == nil {
		return false
	}
	if t.Expr != nil {
		return t.Expr.Changed()
	}
	for _, v := range t.Object {
		if templateChanged(v) {
			return true
		}
	}
	for _, v := range t.Array {
		if templateChanged(v) {
			return true
		}
	}
	return false
}

// MarkChangeChecked clears the change flag across the whole tree.
func (o *Object) MarkChangeChecked() {
	markTemplateChecked(o.template)
}

func markTemplateChecked(t *Template) {
	if t == nil {
		return
	}
	if t.Expr != nil {
		t.Expr.MarkChangeChecked()
		return
	}
	for _, v := range t.Object {
		markTemplateChecked(v)
	}
	for _, v := range t.Array {
		markTemplateChecked(v)
	}
}
