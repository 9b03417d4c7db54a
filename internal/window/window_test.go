package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonstream/engine/internal/value"
)

func TestCreateTumbling(t *testing.T) {
	fn, err := Create(KindTumbling, []interface{}{int64(3)})
	require.NoError(t, err)

	d0 := fn(0, value.Null())
	d1 := fn(1, value.Null())
	d2 := fn(2, value.Null())
	d3 := fn(3, value.Null())

	require.Len(t, d0, 1)
	assert.True(t, Equal(d0[0], d1[0]))
	assert.True(t, Equal(d1[0], d2[0]))
	assert.False(t, Equal(d2[0], d3[0]))
}

func TestCreateTumblingBy(t *testing.T) {
	fn, err := Create(KindTumblingBy, []interface{}{int64(10), "amount"})
	require.NoError(t, err)

	a := fn(0, value.FromNative(map[string]interface{}{"amount": 5.0}))
	b := fn(0, value.FromNative(map[string]interface{}{"amount": 7.0}))
	c := fn(0, value.FromNative(map[string]interface{}{"amount": 15.0}))
	assert.True(t, Equal(a[0], b[0]))
	assert.False(t, Equal(a[0], c[0]))
}

func TestCreateHopping(t *testing.T) {
	fn, err := Create(KindHopping, []interface{}{int64(4), int64(2)})
	require.NoError(t, err)
	descs := fn(3, value.Null())
	assert.GreaterOrEqual(t, len(descs), 1)
	for _, d := range descs {
		assert.Equal(t, KindHopping, d.Type)
	}
}

func TestCreateSliding(t *testing.T) {
	fn, err := Create(KindSliding, []interface{}{int64(5)})
	require.NoError(t, err)
	d := fn(2, value.Null())
	require.Len(t, d, 1)
	assert.Equal(t, KindSliding, d[0].Type)
}

func TestCreateCount(t *testing.T) {
	fn, err := Create(KindCount, []interface{}{int64(2)})
	require.NoError(t, err)
	d0 := fn(0, value.Null())
	d1 := fn(1, value.Null())
	d2 := fn(2, value.Null())
	assert.True(t, Equal(d0[0], d1[0]))
	assert.False(t, Equal(d1[0], d2[0]))
}

func TestCreateSession(t *testing.T) {
	fn, err := Create(KindSession, []interface{}{int64(5), "ts"})
	require.NoError(t, err)

	d0 := fn(0, value.FromNative(map[string]interface{}{"ts": 0.0}))
	d1 := fn(1, value.FromNative(map[string]interface{}{"ts": 3.0}))
	d2 := fn(2, value.FromNative(map[string]interface{}{"ts": 20.0}))

	assert.True(t, Equal(d0[0], d1[0]), "gap within timeout stays in the same session")
	assert.False(t, Equal(d1[0], d2[0]), "gap exceeding timeout opens a new session")
}

func TestCreateUnsupportedKind(t *testing.T) {
	_, err := Create(Kind("bogus"), nil)
	assert.Error(t, err)
}

func TestCreateMissingArgs(t *testing.T) {
	_, err := Create(KindTumbling, nil)
	assert.Error(t, err)

	_, err = Create(KindTumblingBy, []interface{}{int64(1)})
	assert.Error(t, err)
}

func TestDescriptorValue(t *testing.T) {
	d := Descriptor{WindowID: "1", Start: 0, End: 10, Type: KindTumbling}
	v := d.Value()
	obj, ok := v.AsObject()
	require.True(t, ok)
	wid, _ := obj.Get("windowId")
	s, _ := wid.AsString()
	assert.Equal(t, "1", s)
}
