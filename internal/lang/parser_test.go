package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimplePipeline(t *testing.T) {
	q, err := Parse(`input | where age >= 21 | insert_into(output)`)
	require.NoError(t, err)
	assert.Equal(t, "input", q.Source)
	require.Len(t, q.Ops, 2)
	_, ok := q.Ops[0].(*WhereOp)
	assert.True(t, ok)
	insert, ok := q.Ops[1].(*InsertIntoOp)
	require.True(t, ok)
	assert.Equal(t, "output", insert.Stream)
}

func TestParseSelectObject(t *testing.T) {
	q, err := Parse(`input | select { name, age, total: quantity*price }`)
	require.NoError(t, err)
	sel, ok := q.Ops[0].(*SelectOp)
	require.True(t, ok)
	require.Len(t, sel.Obj.Entries, 3)
}

func TestParseSummarizeWithWindowAndEmit(t *testing.T) {
	q, err := Parse(`sales | summarize { total: sum(amount) } by product over w = tumbling_window(10) emit every 5`)
	require.NoError(t, err)
	sum, ok := q.Ops[0].(*SummarizeOp)
	require.True(t, ok)
	require.NotNil(t, sum.Window)
	assert.Equal(t, "w", sum.OverName)
	require.NotNil(t, sum.Emit)
	require.NotNil(t, sum.Emit.Every)
}

func TestParseFlowDeclaration(t *testing.T) {
	top, err := ParseStatement(`create flow myflow ttl(5m) as input | where true | insert_into(output)`)
	require.NoError(t, err)
	require.NotNil(t, top.Flow)
	assert.Equal(t, "myflow", top.Flow.Name)
	assert.Equal(t, "5m", top.Flow.TTL)
	assert.Equal(t, "input", top.Flow.Pipeline.Source)
}

func TestParseBarePipelineStatement(t *testing.T) {
	top, err := ParseStatement(`input | where true`)
	require.NoError(t, err)
	assert.Nil(t, top.Flow)
	require.NotNil(t, top.Pipeline)
	assert.Equal(t, "input", top.Pipeline.Source)
}

func TestParseScanSteps(t *testing.T) {
	q, err := Parse(`events | scan(
		step login: event_type=="login" => user_id=user_id;
		step end: event_type=="logout" => emit({user_id});
	)`)
	require.NoError(t, err)
	scan, ok := q.Ops[0].(*ScanOp)
	require.True(t, ok)
	require.Len(t, scan.Steps, 2)
	assert.Equal(t, "login", scan.Steps[0].Name)
	assert.Equal(t, "end", scan.Steps[1].Name)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(`this is not valid |||`)
	assert.Error(t, err)
}

func TestParseRejectsEmptySource(t *testing.T) {
	_, err := Parse(``)
	assert.Error(t, err)
}

func TestParseOperatorPrecedence(t *testing.T) {
	q, err := Parse(`input | where status == "pending" && amount > 100`)
	require.NoError(t, err)
	where, ok := q.Ops[0].(*WhereOp)
	require.True(t, ok)
	bin, ok := where.Cond.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, TokenType("&&"), bin.Op)
}
