package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonstream/engine/internal/value"
)

func mustInsert(t *testing.T, e *Engine, stream string, doc map[string]interface{}) {
	t.Helper()
	v := value.FromNative(doc)
	require.NoError(t, e.Streams().Insert(stream, v))
}

func TestWhereFilterThreshold(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require.NoError(t, e.Streams().CreateStream("input"))
	require.NoError(t, e.Streams().CreateStream("output"))

	var got []value.Value
	_, err := e.Streams().Subscribe("output", func(v value.Value) { got = append(got, v) })
	require.NoError(t, err)

	res := e.ExecuteStatement("input | where age >= 21 | insert_into(output)", nil)
	require.True(t, res.Success, res.Err)

	mustInsert(t, e, "input", map[string]interface{}{"name": "Under21", "age": 20.0})
	mustInsert(t, e, "input", map[string]interface{}{"name": "Exactly21", "age": 21.0})
	mustInsert(t, e, "input", map[string]interface{}{"name": "Over21", "age": 25.0})
	mustInsert(t, e, "input", map[string]interface{}{"name": "Under21_2", "age": 18.0})

	require.Len(t, got, 2)
	name0, _ := fieldOf(got[0], "name").AsString()
	name1, _ := fieldOf(got[1], "name").AsString()
	assert.Equal(t, "Exactly21", name0)
	assert.Equal(t, "Over21", name1)
}

func TestSelectExclusion(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require.NoError(t, e.Streams().CreateStream("input"))
	require.NoError(t, e.Streams().CreateStream("output"))

	var got value.Value
	_, err := e.Streams().Subscribe("output", func(v value.Value) { got = v })
	require.NoError(t, err)

	res := e.ExecuteStatement(`input | select { name, age, email } | insert_into(output)`, nil)
	require.True(t, res.Success, res.Err)

	mustInsert(t, e, "input", map[string]interface{}{
		"name": "John", "age": 30.0, "email": "john@x", "password": "s", "ssn": "1",
	})

	obj, ok := got.AsObject()
	require.True(t, ok)
	assert.Equal(t, 3, obj.Len())
	_, hasPassword := obj.Get("password")
	assert.False(t, hasPassword)
}

func TestSummarizeTumblingWindowByGroup(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require.NoError(t, e.Streams().CreateStream("sales"))
	require.NoError(t, e.Streams().CreateStream("summary"))

	var got []value.Value
	_, err := e.Streams().Subscribe("summary", func(v value.Value) { got = append(got, v) })
	require.NoError(t, err)

	res := e.ExecuteStatement(
		"sales | summarize { total: sum(amount), count: count() } by product over w = tumbling_window(2) | insert_into(summary)",
		nil,
	)
	require.True(t, res.Success, res.Err)

	mustInsert(t, e, "sales", map[string]interface{}{"product": "laptop", "amount": 1200.0})
	mustInsert(t, e, "sales", map[string]interface{}{"product": "laptop", "amount": 1100.0})
	mustInsert(t, e, "sales", map[string]interface{}{"product": "mouse", "amount": 25.0})
	mustInsert(t, e, "sales", map[string]interface{}{"product": "mouse", "amount": 30.0})
	// Summarize runs on its own scheduler; flushing the source waits for
	// the queued work before the emitted results are read.
	require.NoError(t, e.Streams().Flush("sales"))

	require.GreaterOrEqual(t, len(got), 1)
	total, _ := fieldOf(got[0], "total").AsNumber()
	count, _ := fieldOf(got[0], "count").AsNumber()
	assert.Equal(t, 2300.0, total)
	assert.Equal(t, 2.0, count)
}

func TestFlowLifecycleAndStopFlowByName(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require.NoError(t, e.Streams().CreateStream("input"))
	require.NoError(t, e.Streams().CreateStream("output"))

	res := e.ExecuteStatement("create flow myflow as input | where age >= 0 | insert_into(output)", nil)
	require.True(t, res.Success, res.Err)

	flows := e.ListActiveFlows()
	require.Len(t, flows, 1)
	assert.Equal(t, "myflow", flows[0].Name)
	assert.Equal(t, FlowActive, flows[0].State)

	var events []FlowEvent
	e.OnFlowEvent(func(ev FlowEvent) { events = append(events, ev) })

	stopRes := e.StopFlowByName("myflow")
	assert.True(t, stopRes.Success)
	assert.Empty(t, e.ListActiveFlows())
	require.Len(t, events, 1)
	assert.Equal(t, FlowEventDeleted, events[0].Kind)
}

func TestDuplicateFlowNameRejected(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require.NoError(t, e.Streams().CreateStream("input"))

	res := e.ExecuteStatement("create flow dup as input | where true", nil)
	require.True(t, res.Success)

	res2 := e.ExecuteStatement("create flow dup as input | where true", nil)
	require.False(t, res2.Success)
	assert.Equal(t, CodeDuplicateFlow, res2.Err.Code)
}

func TestUnknownStreamError(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	res := e.ExecuteStatement("missing | where true", nil)
	require.False(t, res.Success)
	assert.Equal(t, CodeUnknownStream, res.Err.Code)
}

func TestParseErrorReturnsNoSideEffects(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	res := e.ExecuteStatement("this is not valid |||", nil)
	require.False(t, res.Success)
	assert.Equal(t, CodeParseError, res.Err.Code)
	assert.Empty(t, e.ListActiveFlows())
}

func TestProjectComputation(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require.NoError(t, e.Streams().CreateStream("input"))
	require.NoError(t, e.Streams().CreateStream("output"))

	var got value.Value
	_, err := e.Streams().Subscribe("output", func(v value.Value) { got = v })
	require.NoError(t, err)

	res := e.ExecuteStatement(
		`input | select { product, quantity, price, total: quantity*price, tax: quantity*price*0.1 } | insert_into(output)`,
		nil,
	)
	require.True(t, res.Success, res.Err)

	mustInsert(t, e, "input", map[string]interface{}{"product": "widget", "quantity": 3.0, "price": 10.0})

	total, _ := fieldOf(got, "total").AsNumber()
	tax, _ := fieldOf(got, "tax").AsNumber()
	assert.Equal(t, 30.0, total)
	assert.Equal(t, 3.0, tax)
}

func TestMultiStagePipeline(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require.NoError(t, e.Streams().CreateStream("orders"))
	require.NoError(t, e.Streams().CreateStream("output"))

	var got []value.Value
	_, err := e.Streams().Subscribe("output", func(v value.Value) { got = append(got, v) })
	require.NoError(t, err)

	res := e.ExecuteStatement(
		`orders | where status == "pending" && amount > 100 | select { id, amount } | insert_into(output)`,
		nil,
	)
	require.True(t, res.Success, res.Err)

	mustInsert(t, e, "orders", map[string]interface{}{"id": "1", "status": "pending", "amount": 50.0})
	mustInsert(t, e, "orders", map[string]interface{}{"id": "2", "status": "pending", "amount": 150.0})
	mustInsert(t, e, "orders", map[string]interface{}{"id": "3", "status": "shipped", "amount": 200.0})

	require.Len(t, got, 1)
	id, _ := fieldOf(got[0], "id").AsString()
	assert.Equal(t, "2", id)
	obj, ok := got[0].AsObject()
	require.True(t, ok)
	assert.Equal(t, 2, obj.Len())
}

func fieldOf(v value.Value, name string) value.Value {
	obj, ok := v.AsObject()
	if !ok {
		return value.Null()
	}
	fv, _ := obj.Get(name)
	return fv
}
