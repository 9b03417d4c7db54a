package window

import (
	"fmt"

	"github.com/jsonstream/engine/internal/value"
)

// tumblingCount implements `tumbling_window(size)`: non-overlapping,
// windowId = floor(counter / size) (spec §4.11).
func tumblingCount(size int64) Func {
	return func(counter int64, item value.Value) []Descriptor {
		if size <= 0 {
			size = 1
		}
		id := counter / size
		return []Descriptor{{
			WindowID: fmt.Sprintf("%d", id),
			Start:    float64(id * size),
			End:      float64((id + 1) * size),
			Type:     KindTumbling,
		}}
	}
}

// tumblingValue implements `tumbling_window_by(size, field)`: value-based,
// windowId = floor(item.field / size).
func tumblingValue(size int64, field string) Func {
	return func(counter int64, item value.Value) []Descriptor {
		if size <= 0 {
			size = 1
		}
		v, ok := fieldNumber(item, field)
		if !ok {
			v = 0
		}
		id := int64(v) / size
		return []Descriptor{{
			WindowID: fmt.Sprintf("%d", id),
			Start:    float64(id * size),
			End:      float64((id + 1) * size),
			Type:     KindTumblingBy,
		}}
	}
}
