package window

import (
	"fmt"

	"github.com/jsonstream/engine/internal/value"
)

// hoppingCount implements `hopping_window(size, hop)`: count-based and
// overlapping when hop < size, so a single document may belong to more
// than one window (spec §4.11).
func hoppingCount(size, hop int64) Func {
	if hop <= 0 {
		hop = size
	}
	return func(counter int64, item value.Value) []Descriptor {
		return hopDescriptors(counter, size, hop, KindHopping)
	}
}

// hoppingValue implements `hopping_window_by(size, hop, field)`.
func hoppingValue(size, hop int64, field string) Func {
	if hop <= 0 {
		hop = size
	}
	return func(counter int64, item value.Value) []Descriptor {
		v, ok := fieldNumber(item, field)
		if !ok {
			v = 0
		}
		return hopDescriptors(int64(v), size, hop, KindHoppingBy)
	}
}

// hopDescriptors returns every window, in [start, start+size), that covers
// position. Windows start at multiples of hop.
func hopDescriptors(position, size, hop int64, kind Kind) []Descriptor {
	if size <= 0 {
		size = 1
	}
	if hop <= 0 {
		hop = size
	}
	var out []Descriptor
	// The earliest window start that could still cover position is the
	// largest multiple of hop no greater than position, stepping back
	// while the window still contains position.
	firstStart := (position / hop) * hop
	for start := firstStart; start >= 0 && start > position-size; start -= hop {
		if start <= position && position < start+size {
			out = append(out, Descriptor{
				WindowID: fmt.Sprintf("%d", start),
				Start:    float64(start),
				End:      float64(start + size),
				Type:     kind,
			})
		}
		if start == 0 {
			break
		}
	}
	return out
}
