// Package operator implements the closed set of pipeline operators —
// Filter, Select, Scan, Summarize, InsertInto, Collect — sharing the
// push/process/emit/flush lifecycle of spec §4.4.
package operator

import (
	"github.com/jsonstream/engine/internal/value"
)

// Operator is one stage of a realized pipeline (spec §4.4).
type Operator interface {
	// Push is the hot path: feed one document in. Returns once processing
	// for this document (and any downstream emits it causes) is complete,
	// except inside Summarize, which may defer work onto its own queue.
	Push(doc value.Value)
	// Flush signals end of input: emit any buffered state, then reset.
	Flush()
	// SetDownstream wires this operator's output to the next stage.
	SetDownstream(next Operator)
}

// Sink is implemented by terminal operators (InsertInto, Collect) that
// have no notion of a downstream operator to forward to.
type Sink interface {
	Operator
}

// Base provides the downstream-wiring and emit helper shared by every
// non-terminal operator.
type Base struct {
	downstream Operator
}

func (b *Base) SetDownstream(next Operator) {
	b.downstream = next
}

// Emit forwards doc to the downstream operator, or does nothing if this
// is the last stage (spec §4.4 "emit(doc) — forwards to downstream.push
// if a downstream exists; otherwise a no-op").
func (b *Base) Emit(doc value.Value) {
	if b.downstream != nil {
		b.downstream.Push(doc)
	}
}
