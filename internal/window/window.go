// Package window implements the closed set of window factories (spec §4.11).
// Each factory returns a Func of the arrival counter and the current
// document that computes the descriptors of the windows the document
// belongs to. Every Func is pure except session_window's, which remembers
// the previous document. Two documents belong to the same window iff their
// descriptors are equal (internal/value.Equal).
package window

import (
	"fmt"

	"github.com/jsonstream/engine/internal/duration"
	"github.com/jsonstream/engine/internal/safeget"
	"github.com/jsonstream/engine/internal/value"
)

// Kind names one of the closed set of window variants.
type Kind string

const (
	KindTumbling     Kind = "tumbling"
	KindTumblingBy   Kind = "tumbling_by"
	KindHopping      Kind = "hopping"
	KindHoppingBy    Kind = "hopping_by"
	KindSliding      Kind = "sliding"
	KindSlidingBy    Kind = "sliding_by"
	KindCount        Kind = "count"
	KindSession      Kind = "session"
)

// Descriptor identifies a single window instance. Two documents share a
// window iff their descriptors compare equal.
type Descriptor struct {
	WindowID string
	Start    float64
	End      float64
	Type     Kind
}

// Value renders the descriptor as an internal/value.Value so it can be
// embedded in a summarize result template under the window's alias name
// (spec §4.8 "a reference to the window name... resolves to the current
// window descriptor object").
func (d Descriptor) Value() value.Value {
	obj := value.NewObject()
	obj.Set("windowId", value.String(d.WindowID))
	obj.Set("start", value.Number(d.Start))
	obj.Set("end", value.Number(d.End))
	obj.Set("type", value.String(string(d.Type)))
	return value.FromObject(obj)
}

// Equal reports whether two descriptors belong to the same window.
func Equal(a, b Descriptor) bool {
	return value.Equal(a.Value(), b.Value())
}

// Func computes the window descriptor a document (or arrival index, for
// count-based windows) belongs to. Called once per incoming document by
// Summarize (spec §4.8 step 1). A single document may produce more than
// one descriptor for overlapping windows (hopping, sliding) — hence the
// slice return.
type Func func(counter int64, item value.Value) []Descriptor

// Create builds the Func for kind with the given raw argument literals
// (numbers or duration strings, per §4.11). args are already-evaluated
// constant arguments from the windowCall in the CST; field-based variants
// take a trailing field-path string after their size (and hop).
func Create(kind Kind, args []interface{}) (Func, error) {
	switch kind {
	case KindTumbling:
		size, err := toCount(args, 0)
		if err != nil {
			return nil, err
		}
		return tumblingCount(size), nil
	case KindTumblingBy:
		size, field, err := sizeAndField(args)
		if err != nil {
			return nil, err
		}
		return tumblingValue(size, field), nil
	case KindCount:
		n, err := toCount(args, 0)
		if err != nil {
			return nil, err
		}
		return tumblingCount(n), nil
	case KindHopping:
		size, hop, err := twoCounts(args)
		if err != nil {
			return nil, err
		}
		return hoppingCount(size, hop), nil
	case KindHoppingBy:
		size, hop, field, err := sizeHopAndField(args)
		if err != nil {
			return nil, err
		}
		return hoppingValue(size, hop, field), nil
	case KindSliding:
		size, err := toCount(args, 0)
		if err != nil {
			return nil, err
		}
		return slidingCount(size), nil
	case KindSlidingBy:
		size, field, err := sizeAndField(args)
		if err != nil {
			return nil, err
		}
		return slidingValue(size, field), nil
	case KindSession:
		timeout, field, err := durationAndField(args)
		if err != nil {
			return nil, err
		}
		return sessionWindow(timeout, field), nil
	default:
		return nil, fmt.Errorf("unsupported window kind: %s", kind)
	}
}

func toCount(args []interface{}, idx int) (int64, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("window: missing size argument")
	}
	return asCount(args[idx])
}

func asCount(arg interface{}) (int64, error) {
	switch v := arg.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		d, err := duration.Parse(v)
		if err != nil {
			return 0, fmt.Errorf("window: invalid size %q: %w", v, err)
		}
		return int64(d), nil
	default:
		return 0, fmt.Errorf("window: size argument has unsupported type %T", arg)
	}
}

func twoCounts(args []interface{}) (int64, int64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("window: expected size and hop arguments")
	}
	size, err := asCount(args[0])
	if err != nil {
		return 0, 0, err
	}
	hop, err := asCount(args[1])
	if err != nil {
		return 0, 0, err
	}
	return size, hop, nil
}

func sizeAndField(args []interface{}) (int64, string, error) {
	if len(args) < 2 {
		return 0, "", fmt.Errorf("window: expected size and field arguments")
	}
	size, err := asCount(args[0])
	if err != nil {
		return 0, "", err
	}
	field, ok := args[1].(string)
	if !ok {
		return 0, "", fmt.Errorf("window: field argument must be a string path")
	}
	return size, field, nil
}

func sizeHopAndField(args []interface{}) (int64, int64, string, error) {
	if len(args) < 3 {
		return 0, 0, "", fmt.Errorf("window: expected size, hop and field arguments")
	}
	size, hop, err := twoCounts(args[:2])
	if err != nil {
		return 0, 0, "", err
	}
	field, ok := args[2].(string)
	if !ok {
		return 0, 0, "", fmt.Errorf("window: field argument must be a string path")
	}
	return size, hop, field, nil
}

func durationAndField(args []interface{}) (int64, string, error) {
	if len(args) < 2 {
		return 0, "", fmt.Errorf("window: expected timeout and field arguments")
	}
	timeout, err := asCount(args[0])
	if err != nil {
		return 0, "", err
	}
	field, ok := args[1].(string)
	if !ok {
		return 0, "", fmt.Errorf("window: field argument must be a string path")
	}
	return timeout, field, nil
}

func fieldNumber(item value.Value, field string) (float64, bool) {
	v := safeget.Get(item, field)
	return v.AsNumber()
}
