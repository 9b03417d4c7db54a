package operator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonstream/engine/internal/value"
)

type fakeInserter struct {
	inserted []value.Value
	failOn   string
}

func (f *fakeInserter) Insert(stream string, doc value.Value) error {
	if stream == f.failOn {
		return fmt.Errorf("unknown stream %q", stream)
	}
	f.inserted = append(f.inserted, doc)
	return nil
}

type fakeLogger struct {
	messages []string
}

func (f *fakeLogger) Log(level, code, message string, fields map[string]value.Value) {
	f.messages = append(f.messages, code)
}

func TestInsertIntoForwardsToStream(t *testing.T) {
	ins := &fakeInserter{}
	sink := NewInsertInto("output", ins, nil)
	sink.Push(value.Number(1))
	sink.Push(value.Number(2))
	require.Len(t, ins.inserted, 2)
}

func TestInsertIntoLogsOnUnknownStream(t *testing.T) {
	ins := &fakeInserter{failOn: "output"}
	log := &fakeLogger{}
	sink := NewInsertInto("output", ins, log)
	sink.Push(value.Number(1))
	require.Len(t, log.messages, 1)
	assert.Equal(t, "UNKNOWN_STREAM", log.messages[0])
}

func TestCollectForwardsToCallback(t *testing.T) {
	var got []value.Value
	c := NewCollect(func(v value.Value) { got = append(got, v) })
	c.Push(value.Number(1))
	c.Push(value.Number(2))
	assert.Len(t, got, 2)
}

func TestCollectWithNilCallbackIsNoop(t *testing.T) {
	c := NewCollect(nil)
	assert.NotPanics(t, func() { c.Push(value.Number(1)) })
}
