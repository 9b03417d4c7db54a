package operator

import (
	"github.com/jsonstream/engine/internal/compiler"
	"github.com/jsonstream/engine/internal/value"
)

// Select implements `select { key: expr, ...spread, -exclude }`
// (spec §4.6). Entries are evaluated in source order: static keys write
// last-write-wins, spreads copy own-enumerable properties, and `-ident`
// removes a key from the accumulator built so far.
type Select struct {
	Base
	entries []compiler.ObjectEntry
}

func NewSelect(entries []compiler.ObjectEntry) *Select {
	return &Select{entries: entries}
}

func (s *Select) Push(doc value.Value) {
	s.Emit(compiler.EvalObject(s.entries, doc))
}

func (s *Select) Flush() {}
