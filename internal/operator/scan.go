package operator

import (
	"strings"

	"github.com/jsonstream/engine/internal/compiler"
	"github.com/jsonstream/engine/internal/value"
)

// ScanStatement is one statement inside a scan step body (spec §4.7):
// either an assignment into the match state, or an emit call.
type ScanStatement struct {
	IsEmit bool
	Target string // dotted path into state, set for assignments
	Value  compiler.ScanValueExpr
}

// ScanStep is one compiled `step name: cond => stmts` clause.
type ScanStep struct {
	Name       string
	Cond       compiler.ScanBoolExpr
	Statements []ScanStatement
}

// Scan implements the multi-step pattern matcher (spec §4.7). Each step
// owns an independent stateSlot: nil when no match is in progress, or the
// shared match-state object once a match starts at or promotes into it.
type Scan struct {
	Base
	steps    []ScanStep
	slots    []*value.Object // parallel to steps; nil means no live match
	nextID   int64
}

func NewScan(steps []ScanStep) *Scan {
	return &Scan{steps: steps, slots: make([]*value.Object, len(steps))}
}

func (s *Scan) Push(doc value.Value) {
	matchedThisDoc := make([]bool, len(s.steps))

	// Promotion check, iterating steps from last to first (spec §4.7).
	for i := len(s.steps) - 1; i >= 1; i-- {
		prev := s.slots[i-1]
		if prev == nil {
			continue
		}
		step := s.steps[i]
		prevState := value.FromObject(prev)
		if !step.Cond(doc, prevState) {
			continue
		}
		promoted := prev.Clone()
		if _, ok := promoted.Get(step.Name); !ok {
			promoted.Set(step.Name, value.NewObjectValue())
		}
		s.slots[i-1] = nil
		s.slots[i] = promoted
		s.runStatements(step, doc)
		matchedThisDoc[i] = true
	}

	// Continuation check.
	for i := 0; i < len(s.steps); i++ {
		if matchedThisDoc[i] {
			continue
		}
		step := s.steps[i]
		live := s.slots[i] != nil
		if !live && i != 0 {
			continue
		}
		var ctxState value.Value
		if live {
			ctxState = value.FromObject(s.slots[i])
		} else {
			ctxState = value.NewObjectValue()
		}
		if !step.Cond(doc, ctxState) {
			continue
		}
		if !live {
			obj := value.NewObject()
			obj.Set("matchId", value.Number(float64(s.nextID)))
			s.nextID++
			obj.Set(step.Name, value.NewObjectValue())
			s.slots[i] = obj
		}
		s.runStatements(step, doc)
	}
}

func (s *Scan) runStatements(step ScanStep, doc value.Value) {
	state := s.slots[indexOfStep(s.steps, step.Name)]
	for _, stmt := range step.Statements {
		stateVal := value.FromObject(state)
		if stmt.IsEmit {
			s.Emit(stmt.Value(doc, stateVal))
			continue
		}
		result := stmt.Value(doc, stateVal)
		setPath(state, stmt.Target, result)
	}
}

func indexOfStep(steps []ScanStep, name string) int {
	for i, st := range steps {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// setPath writes v into root along a dotted path, creating intermediate
// objects as needed.
func setPath(root *value.Object, path string, v value.Value) {
	parts := strings.Split(path, ".")
	cur := root
	for i, part := range parts {
		if i == len(parts)-1 {
			cur.Set(part, v)
			return
		}
		child, ok := cur.Get(part)
		var childObj *value.Object
		if ok {
			childObj, ok = child.AsObject()
		}
		if !ok {
			childObj = value.NewObject()
			cur.Set(part, value.FromObject(childObj))
		}
		cur = childObj
	}
}

// Flush discards any live match states without emitting (spec §4.7
// "Termination").
func (s *Scan) Flush() {
	for i := range s.slots {
		s.slots[i] = nil
	}
}
