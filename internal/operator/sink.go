package operator

import (
	"github.com/jsonstream/engine/internal/value"
)

// StreamInserter is the narrow slice of StreamManager that InsertInto
// needs, kept as an interface here to avoid operator depending on
// streammgr (spec §4.9).
type StreamInserter interface {
	Insert(streamName string, doc value.Value) error
}

// Logger is the narrow diagnostic sink operators write to on recoverable
// runtime errors (spec §7 "Runtime operator errors... logged to _log").
type Logger interface {
	Log(level, code, message string, fields map[string]value.Value)
}

// InsertInto implements `insert_into(streamName)` (spec §4.9): every
// incoming document is forwarded to StreamManager.insert. A missing
// target stream is logged and the document dropped; flush is a no-op.
type InsertInto struct {
	Base
	stream   string
	inserter StreamInserter
	logger   Logger
}

func NewInsertInto(stream string, inserter StreamInserter, logger Logger) *InsertInto {
	return &InsertInto{stream: stream, inserter: inserter, logger: logger}
}

func (i *InsertInto) Push(doc value.Value) {
	if err := i.inserter.Insert(i.stream, doc); err != nil {
		if i.logger != nil {
			i.logger.Log("error", "UNKNOWN_STREAM", err.Error(), map[string]value.Value{
				"stream": value.String(i.stream),
			})
		}
	}
}

func (i *InsertInto) Flush() {}

// Collect implements the default ad-hoc sink (spec §4.12): when a plan
// ends without insert_into, the engine appends a Collect stage that
// forwards every result to a caller-supplied callback.
type Collect struct {
	Base
	onResult func(value.Value)
}

func NewCollect(onResult func(value.Value)) *Collect {
	return &Collect{onResult: onResult}
}

func (c *Collect) Push(doc value.Value) {
	if c.onResult != nil {
		c.onResult(doc)
	}
}

func (c *Collect) Flush() {}
