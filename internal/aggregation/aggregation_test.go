package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonstream/engine/internal/value"
)

func doc(amount float64) value.Value {
	return value.FromNative(map[string]interface{}{"amount": amount})
}

func TestSumAggregationAccumulates(t *testing.T) {
	sum, err := NewAggregation("sum", []*Expression{NewSafeGet("amount")}, nil)
	require.NoError(t, err)

	sum.Push(doc(10))
	sum.Push(doc(15))
	n, _ := sum.Result().AsNumber()
	assert.Equal(t, 25.0, n)
}

func TestCountAggregationIgnoresValue(t *testing.T) {
	count, err := NewAggregation("count", []*Expression{NewConst(value.Number(1))}, nil)
	require.NoError(t, err)
	count.Push(doc(1))
	count.Push(doc(2))
	count.Push(doc(3))
	n, _ := count.Result().AsNumber()
	assert.Equal(t, 3.0, n)
}

func TestAggregationCloneIsIndependent(t *testing.T) {
	sum, err := NewAggregation("sum", []*Expression{NewSafeGet("amount")}, nil)
	require.NoError(t, err)
	sum.Push(doc(5))

	clone := sum.Clone()
	clone.Push(doc(100))

	n, _ := sum.Result().AsNumber()
	assert.Equal(t, 5.0, n, "the original accumulator must be unaffected by pushes into its clone")
}

func TestChangedTracksResultTransitions(t *testing.T) {
	sum, err := NewAggregation("sum", []*Expression{NewSafeGet("amount")}, nil)
	require.NoError(t, err)
	sum.Push(doc(5))
	assert.True(t, sum.Changed())
	sum.MarkChangeChecked()
	assert.False(t, sum.Changed())

	sum.Push(doc(0))
	assert.False(t, sum.Changed(), "pushing a value that doesn't move the running sum leaves Changed false")
}

func TestNewAggregationUnknownNameErrors(t *testing.T) {
	_, err := NewAggregation("bogus", nil, nil)
	assert.Error(t, err)
}

func TestTemplateObjectRendersShapeAndTracksGroups(t *testing.T) {
	sumExpr, err := NewAggregation("sum", []*Expression{NewSafeGet("amount")}, nil)
	require.NoError(t, err)
	tmpl := &Template{
		ObjectKeys: []string{"total", "label"},
		Object: map[string]*Template{
			"total": {Expr: sumExpr},
			"label": {Static: staticPtr(value.String("sales"))},
		},
	}

	a := NewObject(tmpl)
	b := NewObject(tmpl)

	a.Push(doc(10))
	a.Push(doc(20))
	b.Push(doc(1))

	resA, ok := a.Result(value.Null()).AsObject()
	require.True(t, ok)
	totalA, _ := resA.Get("total")
	n, _ := totalA.AsNumber()
	assert.Equal(t, 30.0, n)

	resB, ok := b.Result(value.Null()).AsObject()
	require.True(t, ok)
	totalB, _ := resB.Get("total")
	nb, _ := totalB.AsNumber()
	assert.Equal(t, 1.0, nb, "each NewObject clone must own an independent accumulator")
}

func staticPtr(v value.Value) *value.Value { return &v }
