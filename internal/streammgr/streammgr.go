// Package streammgr implements the StreamManager of spec §3/§4.3: stream
// lifecycle, subscriptions, and synchronous fan-out on insert.
package streammgr

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/jsonstream/engine/internal/logger"
	"github.com/jsonstream/engine/internal/value"
)

// LogStreamName is the reserved system stream engine diagnostics are
// published to (spec §3, §6).
const LogStreamName = "_log"

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Callback is invoked synchronously, once per inserted document.
type Callback func(value.Value)

// SubscriberKind distinguishes an ad-hoc callback from an operator chain's
// head, the latter also carrying a Flush hook (spec §3 "Subscriber").
type SubscriberKind int

const (
	KindCallback SubscriberKind = iota
	KindOperatorHead
)

type subscriber struct {
	id       uint64
	kind     SubscriberKind
	stream   string // empty for a subscribeAll listener
	callback Callback
	flush    func()
}

// EventKind is one of the two lifecycle events a Manager fires.
type EventKind string

const (
	EventStreamCreated EventKind = "stream-created"
	EventStreamDeleted EventKind = "stream-deleted"
)

// Event is delivered to listeners registered via OnEvent.
type Event struct {
	Kind   EventKind
	Stream string
}

// EventListener observes stream lifecycle events (spec §4.3, consumed by
// the engine to auto-stop flows whose source stream was deleted).
type EventListener func(Event)

// Stats reports per-stream document counters (spec's Supplemented
// Features "Metrics/introspection").
type Stats struct {
	Input   int64
	Output  int64
	Dropped int64
}

type stream struct {
	name        string
	mu          sync.Mutex
	subscribers []*subscriber
	counter     uint64

	inputCount   int64
	outputCount  int64
	droppedCount int64
}

// Manager is the StreamManager of spec §4.3: stream registry, subscription
// tables, and synchronous fan-out, all owned by a single logical thread
// (spec §5 "Shared resources").
type Manager struct {
	mu         sync.RWMutex
	streams    map[string]*stream
	nextSubID  uint64
	globalSubs []*subscriber
	listeners  []EventListener
	log        logger.Logger
}

// NewManager builds a Manager with the reserved `_log` stream already
// created (spec §2 ambient logging, §3). Documents written through Log
// are also mirrored to log at the matching level; documents inserted into
// `_log` directly are not.
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetDefault()
	}
	m := &Manager{streams: map[string]*stream{}, log: log}
	_ = m.CreateStream(LogStreamName)
	return m
}

// CreateStream creates name if absent.
func (m *Manager) CreateStream(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("streammgr: invalid stream name %q", name)
	}
	m.mu.Lock()
	if _, ok := m.streams[name]; ok {
		m.mu.Unlock()
		return fmt.Errorf("streammgr: stream %q already exists", name)
	}
	m.streams[name] = &stream{name: name}
	m.mu.Unlock()
	m.fire(Event{Kind: EventStreamCreated, Stream: name})
	return nil
}

// CreateOrReplaceStream deletes name first if present, then creates it
// fresh — cascading to stop any flow sourced from the prior stream via the
// stream-deleted event (spec §6 "create or replace stream").
func (m *Manager) CreateOrReplaceStream(name string) error {
	m.mu.RLock()
	_, exists := m.streams[name]
	m.mu.RUnlock()
	if exists {
		if err := m.DeleteStream(name); err != nil {
			return err
		}
	}
	return m.CreateStream(name)
}

// DeleteStream removes name, firing stream-deleted.
func (m *Manager) DeleteStream(name string) error {
	m.mu.Lock()
	if _, ok := m.streams[name]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("streammgr: stream %q does not exist", name)
	}
	delete(m.streams, name)
	m.mu.Unlock()
	m.fire(Event{Kind: EventStreamDeleted, Stream: name})
	return nil
}

func (m *Manager) fire(e Event) {
	m.mu.RLock()
	listeners := append([]EventListener{}, m.listeners...)
	m.mu.RUnlock()
	for _, l := range listeners {
		l(e)
	}
}

// OnEvent registers a lifecycle-event listener.
func (m *Manager) OnEvent(l EventListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

func (m *Manager) lookup(name string) (*stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[name]
	return s, ok
}

// Insert implements operator.StreamInserter: delivers doc to every current
// subscriber of name, in registration order, synchronously (spec §4.3).
func (m *Manager) Insert(name string, doc value.Value) error {
	s, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("streammgr: unknown stream %q", name)
	}
	atomic.AddInt64(&s.inputCount, 1)

	s.mu.Lock()
	s.counter++
	subs := append([]*subscriber{}, s.subscribers...)
	s.mu.Unlock()

	m.mu.RLock()
	global := append([]*subscriber{}, m.globalSubs...)
	m.mu.RUnlock()

	for _, sub := range append(subs, global...) {
		m.deliver(s, sub, doc)
	}
	return nil
}

// InsertAll inserts a sequence of documents into name, in order.
func (m *Manager) InsertAll(name string, docs []value.Value) error {
	for _, d := range docs {
		if err := m.Insert(name, d); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) deliver(s *stream, sub *subscriber, doc value.Value) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&s.droppedCount, 1)
			if s.name != LogStreamName {
				m.Log("error", "SUBSCRIBER_PANIC", fmt.Sprintf("subscriber panicked: %v", r), map[string]value.Value{
					"stream": value.String(s.name),
				})
			}
			return
		}
		atomic.AddInt64(&s.outputCount, 1)
	}()
	sub.callback(doc)
}

// Flush drains every operator chain headed by a subscriber of name (spec
// §4.3).
func (m *Manager) Flush(name string) error {
	s, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("streammgr: unknown stream %q", name)
	}
	s.mu.Lock()
	subs := append([]*subscriber{}, s.subscribers...)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.flush != nil {
			sub.flush()
		}
	}
	return nil
}

// Subscribe registers an ad-hoc callback subscriber on name.
func (m *Manager) Subscribe(name string, cb Callback) (uint64, error) {
	return m.subscribe(name, KindCallback, cb, nil)
}

// SubscribeOperatorHead registers an operator chain's head as a subscriber,
// carrying its flush hook alongside the push callback (spec §3).
func (m *Manager) SubscribeOperatorHead(name string, push Callback, flush func()) (uint64, error) {
	return m.subscribe(name, KindOperatorHead, push, flush)
}

func (m *Manager) subscribe(name string, kind SubscriberKind, cb Callback, flush func()) (uint64, error) {
	s, ok := m.lookup(name)
	if !ok {
		return 0, fmt.Errorf("streammgr: unknown stream %q", name)
	}
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.mu.Unlock()

	sub := &subscriber{id: id, kind: kind, stream: name, callback: cb, flush: flush}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()
	return id, nil
}

// SubscribeAll registers cb against every document inserted into any
// stream, current or future.
func (m *Manager) SubscribeAll(cb Callback) uint64 {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.globalSubs = append(m.globalSubs, &subscriber{id: id, kind: KindCallback, callback: cb})
	m.mu.Unlock()
	return id
}

// Unsubscribe cancels subscriber id, wherever it is registered.
func (m *Manager) Unsubscribe(id uint64) {
	m.mu.Lock()
	for i, sub := range m.globalSubs {
		if sub.id == id {
			m.globalSubs = append(m.globalSubs[:i], m.globalSubs[i+1:]...)
			m.mu.Unlock()
			return
		}
	}
	streams := make([]*stream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	m.mu.Unlock()

	for _, s := range streams {
		s.mu.Lock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
	}
}

// Log implements operator.Logger: it inserts a diagnostic document into
// `_log` and mirrors it to the configured logger.Logger at the matching
// level (spec §2 ambient logging, §6 "_log").
func (m *Manager) Log(level, code, message string, fields map[string]value.Value) {
	obj := value.NewObject()
	obj.Set("level", value.String(level))
	obj.Set("code", value.String(code))
	obj.Set("message", value.String(message))
	for k, v := range fields {
		obj.Set(k, v)
	}
	_ = m.Insert(LogStreamName, value.FromObject(obj))

	switch level {
	case "debug":
		m.log.Debug("%s: %s", code, message)
	case "warn":
		m.log.Warn("%s: %s", code, message)
	case "error":
		m.log.Error("%s: %s", code, message)
	default:
		m.log.Info("%s: %s", code, message)
	}
}

// Stats reports per-stream input/output/dropped document counters.
func (m *Manager) Stats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Stats, len(m.streams))
	for name, s := range m.streams {
		out[name] = Stats{
			Input:   atomic.LoadInt64(&s.inputCount),
			Output:  atomic.LoadInt64(&s.outputCount),
			Dropped: atomic.LoadInt64(&s.droppedCount),
		}
	}
	return out
}

// StreamNames lists every currently registered stream.
func (m *Manager) StreamNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.streams))
	for name := range m.streams {
		names = append(names, name)
	}
	return names
}
