// Package aggregation implements the aggregation-expression tree and the
// per-group aggregation instance registry of spec §4.10.
package aggregation

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/jsonstream/engine/internal/value"
)

// Instance is a single stateful aggregation accumulator, addressed by
// name from an aggregation-tree node (spec §4.10 "aggregation instances").
type Instance interface {
	// Push feeds one value into the accumulator. Non-numeric input is
	// skipped silently by numeric aggregations.
	Push(v value.Value)
	// Result returns the current scalar result.
	Result() value.Value
	// New returns a fresh, empty instance of the same kind — used to seed
	// a new group without mutating a shared template (spec §4.8 step 3).
	New() Instance
}

// Factory constructs a fresh Instance for an aggregation call; args are the
// aggregation's non-expression constant arguments (e.g. percentile's p).
type Factory func(args []value.Value) Instance

var registry = map[string]Factory{}

func init() {
	registerSimple("count", func() Instance { return &countInstance{} })
	registerNumeric("sum", func() Instance { return &sumInstance{} })
	registerNumeric("avg", func() Instance { return &avgInstance{} })
	registerNumeric("min", func() Instance { return &minMaxInstance{isMax: false} })
	registerNumeric("max", func() Instance { return &minMaxInstance{isMax: true} })
	registerNumeric("stddev", func() Instance { return &statsInstance{fn: stats.StandardDeviation} })
	registerNumeric("stddevs", func() Instance { return &statsInstance{fn: stats.StandardDeviationSample} })
	registerNumeric("var", func() Instance { return &statsInstance{fn: stats.Variance} })
	registerNumeric("vars", func() Instance { return &statsInstance{fn: stats.VarS} })
	registerNumeric("median", func() Instance { return &statsInstance{fn: stats.Median} })
	registry["percentile"] = func(args []value.Value) Instance {
		p := 0.0
		if len(args) > 0 {
			p, _ = args[0].AsNumber()
		}
		return &percentileInstance{percent: p}
	}
	registerSimple("first", func() Instance { return &firstLastInstance{first: true} })
	registerSimple("last", func() Instance { return &firstLastInstance{first: false} })
	registerSimple("collect", func() Instance { return &collectInstance{} })
	registerSimple("distinct_count", func() Instance { return &distinctCountInstance{seen: map[string]bool{}} })
}

func registerSimple(name string, ctor func() Instance) {
	registry[name] = func(args []value.Value) Instance { return ctor() }
}

func registerNumeric(name string, ctor func() Instance) {
	registry[name] = func(args []value.Value) Instance { return ctor() }
}

// IsAggregation reports whether name is a registered aggregation type, as
// opposed to a scalar function (spec §4.10 node-kind inference).
func IsAggregation(name string) bool {
	_, ok := registry[name]
	return ok
}

// New constructs a fresh Instance for the named aggregation type.
func New(name string, args []value.Value) (Instance, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("aggregation: unknown aggregation type %q", name)
	}
	return factory(args), nil
}

// ---- instances ----

type countInstance struct{ n int64 }

func (c *countInstance) Push(v value.Value)    { c.n++ }
func (c *countInstance) Result() value.Value   { return value.Number(float64(c.n)) }
func (c *countInstance) New() Instance         { return &countInstance{} }

type sumInstance struct {
	sum    float64
	any    bool
}

func (s *sumInstance) Push(v value.Value) {
	n, ok := v.AsNumber()
	if !ok {
		return
	}
	s.sum += n
	s.any = true
}
func (s *sumInstance) Result() value.Value { return value.Number(s.sum) }
func (s *sumInstance) New() Instance       { return &sumInstance{} }

type avgInstance struct {
	sum float64
	n   int64
}

func (a *avgInstance) Push(v value.Value) {
	n, ok := v.AsNumber()
	if !ok {
		return
	}
	a.sum += n
	a.n++
}
func (a *avgInstance) Result() value.Value {
	if a.n == 0 {
		return value.Number(0)
	}
	return value.Number(a.sum / float64(a.n))
}
func (a *avgInstance) New() Instance { return &avgInstance{} }

type minMaxInstance struct {
	isMax bool
	val   float64
	any   bool
}

func (m *minMaxInstance) Push(v value.Value) {
	n, ok := v.AsNumber()
	if !ok {
		return
	}
	if !m.any {
		m.val, m.any = n, true
		return
	}
	if m.isMax && n > m.val {
		m.val = n
	} else if !m.isMax && n < m.val {
		m.val = n
	}
}
func (m *minMaxInstance) Result() value.Value { return value.Number(m.val) }
func (m *minMaxInstance) New() Instance       { return &minMaxInstance{isMax: m.isMax} }

// statsInstance wraps a montanaflynn/stats aggregate function that needs
// the full sample (stddev, variance, median and their sample variants).
type statsInstance struct {
	fn     func(stats.Float64Data) (float64, error)
	values []float64
}

func (s *statsInstance) Push(v value.Value) {
	n, ok := v.AsNumber()
	if !ok {
		return
	}
	s.values = append(s.values, n)
}
func (s *statsInstance) Result() value.Value {
	if len(s.values) == 0 {
		return value.Number(0)
	}
	r, err := s.fn(s.values)
	if err != nil {
		return value.Number(0)
	}
	return value.Number(r)
}
func (s *statsInstance) New() Instance { return &statsInstance{fn: s.fn} }

type percentileInstance struct {
	percent float64
	values  []float64
}

func (p *percentileInstance) Push(v value.Value) {
	n, ok := v.AsNumber()
	if !ok {
		return
	}
	p.values = append(p.values, n)
}
func (p *percentileInstance) Result() value.Value {
	if len(p.values) == 0 {
		return value.Number(0)
	}
	r, err := stats.Percentile(p.values, p.percent)
	if err != nil {
		return value.Number(0)
	}
	return value.Number(r)
}
func (p *percentileInstance) New() Instance { return &percentileInstance{percent: p.percent} }

type firstLastInstance struct {
	first  bool
	seen   bool
	result value.Value
}

func (f *firstLastInstance) Push(v value.Value) {
	if f.first && f.seen {
		return
	}
	f.result = v
	f.seen = true
}
func (f *firstLastInstance) Result() value.Value { return f.result }
func (f *firstLastInstance) New() Instance       { return &firstLastInstance{first: f.first} }

type collectInstance struct {
	items []value.Value
}

func (c *collectInstance) Push(v value.Value) { c.items = append(c.items, v) }
func (c *collectInstance) Result() value.Value {
	return value.Array(append([]value.Value{}, c.items...))
}
func (c *collectInstance) New() Instance { return &collectInstance{} }

type distinctCountInstance struct {
	seen  map[string]bool
	count int64
}

func (d *distinctCountInstance) Push(v value.Value) {
	key := value.SerializeGroupKey(v)
	if !d.seen[key] {
		d.seen[key] = true
		d.count++
	}
}
func (d *distinctCountInstance) Result() value.Value { return value.Number(float64(d.count)) }
func (d *distinctCountInstance) New() Instance        { return &distinctCountInstance{seen: map[string]bool{}} }
