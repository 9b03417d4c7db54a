package window

import (
	"fmt"

	"github.com/jsonstream/engine/internal/value"
)

// sessionWindow implements `session_window(timeoutDuration, field)`: the
// window grows while successive documents arrive within timeout of each
// other (measured along field); a gap exceeding timeout closes it and
// opens a new one (spec §4.11). The returned Func is stateful — it
// remembers the last-seen value of field across calls, which is safe
// under the single-threaded-per-chain scheduling model (spec §5).
func sessionWindow(timeout int64, field string) Func {
	var (
		started   bool
		windowID  int64
		start     float64
		lastValue float64
	)
	return func(counter int64, item value.Value) []Descriptor {
		v, ok := fieldNumber(item, field)
		if !ok {
			v = float64(counter)
		}
		if !started || v-lastValue > float64(timeout) {
			started = true
			windowID++
			start = v
		}
		lastValue = v
		return []Descriptor{{
			WindowID: fmt.Sprintf("%d", windowID),
			Start:    start,
			End:      lastValue,
			Type:     KindSession,
		}}
	}
}
