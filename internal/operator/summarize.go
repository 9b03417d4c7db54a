package operator

import (
	"github.com/jsonstream/engine/internal/aggregation"
	"github.com/jsonstream/engine/internal/compiler"
	"github.com/jsonstream/engine/internal/runtime"
	"github.com/jsonstream/engine/internal/value"
	"github.com/jsonstream/engine/internal/window"
)

// EmitPolicyKind is one of the custom emission policies, alternative to a
// window (spec §4.8 "emit clauses"). Exactly one of window or emit policy
// is configured on a given Summarize — never both.
type EmitPolicyKind int

const (
	EmitNone EmitPolicyKind = iota
	EmitEvery
	EmitOnChangeOf
	EmitOnGroupChange
	EmitOnUpdate
)

// EmitPolicy configures a Summarize's custom emission behavior.
type EmitPolicy struct {
	Kind  EmitPolicyKind
	Every int64
	Field string // for EmitOnChangeOf
}

// windowGroupSpace holds the live groups for one window instance (one
// window key). Most window kinds only ever have one live space at a time;
// hopping's overlapping windows each get their own.
type windowGroupSpace struct {
	descriptor window.Descriptor
	groups     map[string]*aggregation.Object
	order      []string
}

// Summarize implements `summarize <agg> [by <expr>,...] [over name = win]
// [emit ...]` (spec §4.8).
type Summarize struct {
	Base
	template   *aggregation.Template
	byExprs    []compiler.ValueExpr
	windowName string
	windowFn   window.Func
	emit       *EmitPolicy

	// scheduler, when set, serializes Push's actual work through a queue
	// (spec §4.4 "Summarize may serialize its process through an internal
	// queue to preserve ordering", §5 "Suspension points: only inside
	// Summarize.process"). nil runs process() synchronously inline.
	scheduler *runtime.Scheduler

	spaces  map[string]*windowGroupSpace // keyed by window id; "" when no window is configured
	counter int64

	// emit-policy bookkeeping
	sinceEmit    int64
	lastGroupKey string
	lastFieldVal map[string]value.Value
}

func NewSummarize(template *aggregation.Template, byExprs []compiler.ValueExpr, windowName string, windowFn window.Func, emit *EmitPolicy, scheduler *runtime.Scheduler) *Summarize {
	return &Summarize{
		template:     template,
		byExprs:      byExprs,
		windowName:   windowName,
		windowFn:     windowFn,
		emit:         emit,
		scheduler:    scheduler,
		spaces:       map[string]*windowGroupSpace{},
		lastFieldVal: map[string]value.Value{},
	}
}

func (s *Summarize) groupKey(doc value.Value) string {
	if len(s.byExprs) == 0 {
		return ""
	}
	vals := make([]value.Value, len(s.byExprs))
	for i, fn := range s.byExprs {
		vals[i] = fn(doc)
	}
	return value.SerializeGroupKey(value.Array(vals))
}

func (s *Summarize) Push(doc value.Value) {
	if s.scheduler != nil {
		s.scheduler.Submit(func() { s.process(doc) })
		return
	}
	s.process(doc)
}

func (s *Summarize) process(doc value.Value) {
	if s.windowFn != nil {
		s.pushWindowed(doc)
		return
	}
	s.pushUnwindowed(doc)
}

func (s *Summarize) pushWindowed(doc value.Value) {
	descriptors := s.windowFn(s.counter, doc)
	s.counter++
	// An open window the current document does not belong to has closed:
	// emit its groups and drop it.
	current := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		current[d.WindowID] = true
	}
	for id, space := range s.spaces {
		if !current[id] {
			s.flushSpace(space)
			delete(s.spaces, id)
		}
	}
	for _, d := range descriptors {
		space, existed := s.spaces[d.WindowID]
		if existed && !window.Equal(space.descriptor, d) {
			s.flushSpace(space)
			delete(s.spaces, d.WindowID)
			existed = false
		}
		if !existed {
			space = &windowGroupSpace{descriptor: d, groups: map[string]*aggregation.Object{}}
			s.spaces[d.WindowID] = space
		}
		s.pushIntoSpace(space, doc)
	}
}

func (s *Summarize) pushUnwindowed(doc value.Value) {
	space, ok := s.spaces[""]
	if !ok {
		space = &windowGroupSpace{groups: map[string]*aggregation.Object{}}
		s.spaces[""] = space
	}
	key := s.pushIntoSpace(space, doc)
	s.applyEmitPolicy(space, key)
}

// pushIntoSpace implements steps 2-4 of spec §4.8's per-document
// algorithm, returning the touched group's key.
func (s *Summarize) pushIntoSpace(space *windowGroupSpace, doc value.Value) string {
	key := s.groupKey(doc)
	obj, ok := space.groups[key]
	if !ok {
		obj = aggregation.NewObject(s.template)
		space.groups[key] = obj
		space.order = append(space.order, key)
	}
	obj.Push(doc)
	return key
}

func (s *Summarize) applyEmitPolicy(space *windowGroupSpace, touchedKey string) {
	if s.emit == nil {
		return
	}
	windowVal := value.Null()
	switch s.emit.Kind {
	case EmitEvery:
		s.sinceEmit++
		if s.sinceEmit >= s.emit.Every {
			s.sinceEmit = 0
			s.emitAllGroups(space, windowVal)
		}
	case EmitOnChangeOf:
		obj := space.groups[touchedKey]
		result := obj.Result(windowVal)
		fieldVal := fieldOf(result, s.emit.Field)
		prev, seen := s.lastFieldVal[touchedKey]
		if !seen || !value.Equal(prev, fieldVal) {
			s.lastFieldVal[touchedKey] = fieldVal
			s.Emit(result)
		}
	case EmitOnGroupChange:
		if s.lastGroupKey != "" && s.lastGroupKey != touchedKey {
			if prevObj, ok := space.groups[s.lastGroupKey]; ok {
				s.Emit(prevObj.Result(windowVal))
			}
		}
		s.lastGroupKey = touchedKey
	case EmitOnUpdate:
		s.Emit(space.groups[touchedKey].Result(windowVal))
	}
}

func fieldOf(doc value.Value, field string) value.Value {
	obj, ok := doc.AsObject()
	if !ok {
		return value.Null()
	}
	v, _ := obj.Get(field)
	return v
}

func (s *Summarize) emitAllGroups(space *windowGroupSpace, windowVal value.Value) {
	for _, key := range space.order {
		obj, ok := space.groups[key]
		if !ok {
			continue
		}
		s.Emit(obj.Result(windowVal))
	}
}

func (s *Summarize) flushSpace(space *windowGroupSpace) {
	s.emitAllGroups(space, space.descriptor.Value())
}

// Flush emits every live group across every open window, then resets all
// state (spec §4.8 "Flush").
func (s *Summarize) Flush() {
	if s.scheduler != nil {
		s.scheduler.Drain()
	}
	for _, space := range s.spaces {
		windowVal := value.Null()
		if s.windowFn != nil {
			windowVal = space.descriptor.Value()
		}
		s.emitAllGroups(space, windowVal)
	}
	s.spaces = map[string]*windowGroupSpace{}
	s.sinceEmit = 0
	s.lastGroupKey = ""
	s.lastFieldVal = map[string]value.Value{}
}
