package window

import (
	"fmt"

	"github.com/jsonstream/engine/internal/value"
)

// slidingCount implements `sliding_window(size)`: a new window opens with
// every document and closes after size items (spec §4.11).
func slidingCount(size int64) Func {
	if size <= 0 {
		size = 1
	}
	return func(counter int64, item value.Value) []Descriptor {
		id := counter
		return []Descriptor{{
			WindowID: fmt.Sprintf("%d", id),
			Start:    float64(id),
			End:      float64(id + size),
			Type:     KindSliding,
		}}
	}
}

// slidingValue implements `sliding_window_by(size, field)`.
func slidingValue(size int64, field string) Func {
	if size <= 0 {
		size = 1
	}
	return func(counter int64, item value.Value) []Descriptor {
		v, ok := fieldNumber(item, field)
		if !ok {
			v = float64(counter)
		}
		return []Descriptor{{
			WindowID: fmt.Sprintf("%v", v),
			Start:    v,
			End:      v + float64(size),
			Type:     KindSlidingBy,
		}}
	}
}
