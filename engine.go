// Package engine is the public entry point: parse a pipeline or flow
// declaration, realize it against a StreamManager, and track the
// resulting flow's lifecycle (spec §4.12).
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/jsonstream/engine/internal/duration"
	"github.com/jsonstream/engine/internal/lang"
	"github.com/jsonstream/engine/internal/logger"
	"github.com/jsonstream/engine/internal/streammgr"
	"github.com/jsonstream/engine/internal/value"
)

// FlowState is one point in a flow's lifecycle (spec §4.12 "State machine
// for a flow").
type FlowState string

const (
	FlowCreated FlowState = "created"
	FlowActive  FlowState = "active"
	FlowStopped FlowState = "stopped"
	FlowExpired FlowState = "expired"
)

// FlowEventKind is one of the lifecycle notifications onFlowEvent
// observers receive.
type FlowEventKind string

const (
	FlowEventCreated FlowEventKind = "flow-created"
	FlowEventDeleted FlowEventKind = "flow-deleted"
	FlowEventExpired FlowEventKind = "flow-expired"
)

// FlowEvent is delivered to every callback registered via OnFlowEvent.
type FlowEvent struct {
	Kind FlowEventKind
	ID   string
	Name string // empty for an unnamed ad-hoc pipeline
}

// FlowInfo is the introspection shape ListActiveFlows returns.
type FlowInfo struct {
	ID     string
	Name   string
	Source string
	State  FlowState
}

// Result is the tagged result shape returned by every public entry point
// (spec §6). Exactly one of Value/Err is meaningful, gated by Success.
type Result struct {
	Success bool
	Type    string
	Value   interface{}
	Message string
	Err     *ErrorInfo
}

func okResult(resultType string, v interface{}, message string) Result {
	return Result{Success: true, Type: resultType, Value: v, Message: message}
}

type flow struct {
	id       string
	name     string // empty for an unnamed ad-hoc pipeline
	source   string
	state    FlowState
	subID    uint64
	plan     *plan
	ttlTimer *time.Timer
}

// Engine is the top-level QueryEngine of spec §4.12.
type Engine struct {
	mu      sync.Mutex
	streams *streammgr.Manager
	log     logger.Logger
	config  Config

	flows     map[string]*flow
	byName    map[string]string // flow name -> id
	nextID    uint64
	listeners []func(FlowEvent)
}

// NewEngine builds an Engine with its own StreamManager (including the
// reserved `_log` stream) and applies opts over the default Config.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log:    logger.GetDefault(),
		config: defaultConfig(),
		flows:  map[string]*flow{},
		byName: map[string]string{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.streams = streammgr.NewManager(e.log)
	e.streams.OnEvent(e.onStreamEvent)
	return e
}

// Streams exposes the engine's StreamManager for admin-surface callers
// (create/insert/flush/subscribe commands — spec §6).
func (e *Engine) Streams() *streammgr.Manager { return e.streams }

// ExecuteStatement parses text and either binds it as a new named flow
// (`create flow ...`) or runs it as an ad-hoc pipeline whose results are
// delivered to onResult (spec §4.12). onResult may be nil for a flow
// declaration, whose results normally terminate in insert_into.
func (e *Engine) ExecuteStatement(text string, onResult func(value.Value)) Result {
	top, err := lang.ParseStatement(text)
	if err != nil {
		return fail(CodeParseError, "%s", err.Error())
	}

	if top.Flow != nil {
		return e.createFlow(top.Flow, onResult)
	}
	return e.runAdhoc(top.Pipeline, onResult)
}

func (e *Engine) createFlow(decl *lang.FlowDecl, onResult func(value.Value)) Result {
	e.mu.Lock()
	if _, exists := e.byName[decl.Name]; exists {
		e.mu.Unlock()
		return fail(CodeDuplicateFlow, "flow %q already exists", decl.Name)
	}
	e.mu.Unlock()

	var ttl time.Duration
	if decl.TTL != "" {
		d, err := duration.Parse(decl.TTL)
		if err != nil {
			return fail(CodeInvalidSpec, "invalid ttl: %s", err.Error())
		}
		ttl = d
	}

	f, result := e.bind(decl.Pipeline, decl.Name, onResult)
	if f == nil {
		return result
	}

	if ttl > 0 {
		e.mu.Lock()
		f.ttlTimer = time.AfterFunc(ttl, func() { e.expire(f.id) })
		e.mu.Unlock()
	}

	e.fire(FlowEvent{Kind: FlowEventCreated, ID: f.id, Name: f.name})
	return okResult("flow", f.id, "")
}

// runAdhoc binds an unnamed pipeline, returning its queryId the same way a
// named flow does (spec §4.12 "(b) executes an ad-hoc pipeline returning a
// handle whose callback receives results").
func (e *Engine) runAdhoc(q *lang.Query, onResult func(value.Value)) Result {
	f, result := e.bind(q, "", onResult)
	if f == nil {
		return result
	}
	e.fire(FlowEvent{Kind: FlowEventCreated, ID: f.id})
	return okResult("query", f.id, "")
}

// bind resolves the source stream, realizes the pipeline, and subscribes
// its head as the source's subscriber (spec §4.12 "Flow creation").
func (e *Engine) bind(q *lang.Query, name string, onResult func(value.Value)) (*flow, Result) {
	if _, ok := e.streams.Stats()[q.Source]; !ok {
		return nil, fail(CodeUnknownStream, "unknown stream %q", q.Source)
	}

	p, err := e.realizePipeline(q, onResult)
	if err != nil {
		return nil, fail(CodeInvalidSpec, "%s", err.Error())
	}

	e.mu.Lock()
	e.nextID++
	id := fmt.Sprintf("q%d", e.nextID)
	e.mu.Unlock()

	f := &flow{id: id, name: name, source: q.Source, state: FlowCreated, plan: p}

	subID, err := e.streams.SubscribeOperatorHead(q.Source, f.plan.head.Push, f.plan.flush)
	if err != nil {
		return nil, fail(CodeUnknownStream, "%s", err.Error())
	}
	f.subID = subID
	f.state = FlowActive

	e.mu.Lock()
	e.flows[id] = f
	if name != "" {
		e.byName[name] = id
	}
	e.mu.Unlock()

	return f, Result{}
}

// StopQuery stops the flow with the given queryId (spec §4.12).
func (e *Engine) StopQuery(queryID string) Result {
	return e.stop(queryID, FlowEventDeleted)
}

// StopFlowByName stops the named flow.
func (e *Engine) StopFlowByName(name string) Result {
	e.mu.Lock()
	id, ok := e.byName[name]
	e.mu.Unlock()
	if !ok {
		return fail(CodeUnknownStream, "no active flow named %q", name)
	}
	return e.stop(id, FlowEventDeleted)
}

func (e *Engine) expire(id string) {
	e.stop(id, FlowEventExpired)
}

// stop unsubscribes the flow's head, cancels its TTL, flushes its chain
// best-effort, and fires the given terminal event (spec §4.12, §5
// "Cancellation semantics").
func (e *Engine) stop(id string, kind FlowEventKind) Result {
	e.mu.Lock()
	f, ok := e.flows[id]
	if !ok {
		e.mu.Unlock()
		return fail(CodeUnknownStream, "no active flow %q", id)
	}
	if f.state == FlowStopped || f.state == FlowExpired {
		e.mu.Unlock()
		return okResult("flow", id, "already stopped")
	}
	delete(e.flows, id)
	if f.name != "" {
		delete(e.byName, f.name)
	}
	if f.ttlTimer != nil {
		f.ttlTimer.Stop()
	}
	if kind == FlowEventExpired {
		f.state = FlowExpired
	} else {
		f.state = FlowStopped
	}
	e.mu.Unlock()

	e.streams.Unsubscribe(f.subID)
	f.plan.flush()

	e.fire(FlowEvent{Kind: kind, ID: f.id, Name: f.name})
	return okResult("flow", id, "")
}

// onStreamEvent auto-stops every flow sourced from a deleted stream (spec
// §4.3, §5 "Cancellation semantics").
func (e *Engine) onStreamEvent(ev streammgr.Event) {
	if ev.Kind != streammgr.EventStreamDeleted {
		return
	}
	e.mu.Lock()
	var affected []string
	for id, f := range e.flows {
		if f.source == ev.Stream {
			affected = append(affected, id)
		}
	}
	e.mu.Unlock()

	for _, id := range affected {
		e.stop(id, FlowEventDeleted)
	}
}

// ListActiveFlows reports every flow currently in the created or active
// state.
func (e *Engine) ListActiveFlows() []FlowInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]FlowInfo, 0, len(e.flows))
	for _, f := range e.flows {
		out = append(out, FlowInfo{ID: f.id, Name: f.name, Source: f.source, State: f.state})
	}
	return out
}

// OnFlowEvent registers a lifecycle-event observer.
func (e *Engine) OnFlowEvent(cb func(FlowEvent)) {
	e.mu.Lock()
	e.listeners = append(e.listeners, cb)
	e.mu.Unlock()
}

func (e *Engine) fire(ev FlowEvent) {
	e.mu.Lock()
	listeners := append([]func(FlowEvent){}, e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}
