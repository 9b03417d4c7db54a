package safeget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsonstream/engine/internal/value"
)

func doc() value.Value {
	return value.FromNative(map[string]interface{}{
		"name": "alice",
		"address": map[string]interface{}{
			"city": "nyc",
		},
		"tags":  []interface{}{"a", "b", "c"},
		"items": []interface{}{map[string]interface{}{"id": 1.0}, map[string]interface{}{"id": 2.0}},
	})
}

func TestGetPlainField(t *testing.T) {
	s, _ := Get(doc(), "name").AsString()
	assert.Equal(t, "alice", s)
}

func TestGetNestedField(t *testing.T) {
	s, _ := Get(doc(), "address.city").AsString()
	assert.Equal(t, "nyc", s)
}

func TestGetMissingFieldIsNull(t *testing.T) {
	assert.True(t, Get(doc(), "address.zip").IsNull())
	assert.True(t, Get(doc(), "nonexistent").IsNull())
}

func TestGetArrayIndex(t *testing.T) {
	s, _ := Get(doc(), "tags[1]").AsString()
	assert.Equal(t, "b", s)
}

func TestGetNegativeArrayIndex(t *testing.T) {
	s, _ := Get(doc(), "tags[-1]").AsString()
	assert.Equal(t, "c", s)
}

func TestGetOutOfRangeIndexIsNull(t *testing.T) {
	assert.True(t, Get(doc(), "tags[99]").IsNull())
}

func TestGetNestedObjectInArray(t *testing.T) {
	n, _ := Get(doc(), "items[0].id").AsNumber()
	assert.Equal(t, 1.0, n)
}

func TestGetQuotedBracketKey(t *testing.T) {
	s, _ := Get(doc(), `address['city']`).AsString()
	assert.Equal(t, "nyc", s)
}

func TestGetNonIntegerIndexIsNull(t *testing.T) {
	assert.True(t, Get(doc(), "tags[x]").IsNull())
}

func TestIndexDynamicNumeric(t *testing.T) {
	tags, _ := doc().AsObject()
	tagsVal, _ := tags.Get("tags")
	got := Index(tagsVal, value.Number(0))
	s, _ := got.AsString()
	assert.Equal(t, "a", s)
}

func TestIndexDynamicKey(t *testing.T) {
	addr := Get(doc(), "address")
	got := Index(addr, value.String("city"))
	s, _ := got.AsString()
	assert.Equal(t, "nyc", s)
}

func TestIndexWrongContainerKindIsNull(t *testing.T) {
	assert.True(t, Index(value.Number(5), value.Number(0)).IsNull())
}
