package operator

import (
	"github.com/jsonstream/engine/internal/compiler"
	"github.com/jsonstream/engine/internal/value"
)

// Filter implements `where expr` (spec §4.5).
type Filter struct {
	Base
	cond compiler.BoolExpr
}

func NewFilter(cond compiler.BoolExpr) *Filter {
	return &Filter{cond: cond}
}

func (f *Filter) Push(doc value.Value) {
	if f.cond(doc) {
		f.Emit(doc)
	}
}

func (f *Filter) Flush() {}
