package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNativeScalars(t *testing.T) {
	assert.True(t, FromNative(nil).IsNull())
	b, _ := FromNative(true).AsBool()
	assert.True(t, b)
	n, _ := FromNative(42).AsNumber()
	assert.Equal(t, 42.0, n)
	s, _ := FromNative("hi").AsString()
	assert.Equal(t, "hi", s)
}

func TestFromNativeMapAndSlice(t *testing.T) {
	v := FromNative(map[string]interface{}{"a": 1.0, "b": []interface{}{1.0, 2.0}})
	obj, ok := v.AsObject()
	require.True(t, ok)
	a, _ := obj.Get("a")
	n, _ := a.AsNumber()
	assert.Equal(t, 1.0, n)
	b, _ := obj.Get("b")
	arr, ok := b.AsArray()
	require.True(t, ok)
	assert.Len(t, arr, 2)
}

func TestObjectSetGetDeleteKeysPreserveOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Number(1))
	o.Set("a", Number(2))
	assert.Equal(t, []string{"z", "a"}, o.Keys())
	o.Delete("z")
	assert.Equal(t, []string{"a"}, o.Keys())
	_, ok := o.Get("z")
	assert.False(t, ok)
}

func TestObjectClone(t *testing.T) {
	o := NewObject()
	o.Set("x", Number(1))
	c := o.Clone()
	c.Set("x", Number(2))
	xv, _ := o.Get("x")
	n, _ := xv.AsNumber()
	assert.Equal(t, 1.0, n, "mutating the clone must not mutate the original")
}

func TestTruthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.False(t, Number(0).Truthy())
	assert.True(t, Number(1).Truthy())
	assert.False(t, String("").Truthy())
	assert.True(t, String("x").Truthy())
	assert.True(t, Array(nil).Truthy())
	assert.True(t, NewObjectValue().Truthy())
}

func TestEqual(t *testing.T) {
	a := FromNative(map[string]interface{}{"x": 1.0, "y": []interface{}{1.0, 2.0}})
	b := FromNative(map[string]interface{}{"y": []interface{}{1.0, 2.0}, "x": 1.0})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(Number(1), Number(2)))
	assert.False(t, Equal(Number(1), String("1")))
}

func TestSerializeGroupKeyIsOrderIndependent(t *testing.T) {
	a := FromNative(map[string]interface{}{"x": 1.0, "y": 2.0})
	b := FromNative(map[string]interface{}{"y": 2.0, "x": 1.0})
	assert.Equal(t, SerializeGroupKey(a), SerializeGroupKey(b))
}

func TestParseJSONRoundTrip(t *testing.T) {
	v, err := ParseJSON([]byte(`{"a":1,"b":[true,null,"s"]}`))
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok)
	a, _ := obj.Get("a")
	n, _ := a.AsNumber()
	assert.Equal(t, 1.0, n)

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	v2, err := ParseJSON(out)
	require.NoError(t, err)
	assert.True(t, Equal(v, v2))
}

func TestNativeRoundTrip(t *testing.T) {
	in := map[string]interface{}{"a": 1.0, "b": "s", "c": true}
	v := FromNative(in)
	out := v.Native()
	outMap, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1.0, outMap["a"])
	assert.Equal(t, "s", outMap["b"])
	assert.Equal(t, true, outMap["c"])
}
