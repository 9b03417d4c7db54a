// Package runtime implements the cooperative single-threaded-per-chain
// scheduling model of spec §4.4 and §5: a pending-work counter per
// Summarize stage,
// and a serialized task queue used by the one operator (Summarize) that
// needs to defer work past the synchronous push→process→emit path.
package runtime

import (
	"sync/atomic"
	"time"
)

// OverflowStrategy configures what Submit does when the task queue is at
// capacity.
type OverflowStrategy string

const (
	// StrategyExpand spawns an auxiliary goroutine to hold the overflow
	// task until the queue has room — never drops, never blocks the
	// caller. This is the default.
	StrategyExpand OverflowStrategy = "expand"
	// StrategyDrop discards the task immediately, incrementing Dropped.
	StrategyDrop OverflowStrategy = "drop"
	// StrategyBlock blocks Submit until the queue has room, or until
	// BlockTimeout elapses (0 means block indefinitely).
	StrategyBlock OverflowStrategy = "block"
)

const defaultCapacity = 256

// Scheduler tracks in-flight work for a single Summarize stage. Every
// operator other than Summarize runs push→process→emit synchronously and
// never touches the Scheduler directly; Summarize submits its per-document
// work as a task so that flush() can await completion (spec §5
// "Suspension points: only inside Summarize.process").
type Scheduler struct {
	pending int64
	dropped int64

	tasks        chan func()
	closed       chan struct{}
	strategy     OverflowStrategy
	blockTimeout time.Duration
}

// NewScheduler starts the background worker goroutine that drains tasks
// in submission order, preserving the "intra-operator: emits caused by
// input k are delivered before input k+1" ordering guarantee (spec §5).
// capacity <= 0 uses a built-in default; strategy "" defaults to expand.
func NewScheduler(capacity int, strategy OverflowStrategy, blockTimeout time.Duration) *Scheduler {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if strategy == "" {
		strategy = StrategyExpand
	}
	s := &Scheduler{
		tasks:        make(chan func(), capacity),
		closed:       make(chan struct{}),
		strategy:     strategy,
		blockTimeout: blockTimeout,
	}
	go s.loop()
	return s
}

func (s *Scheduler) loop() {
	for task := range s.tasks {
		task()
		atomic.AddInt64(&s.pending, -1)
	}
	close(s.closed)
}

// Submit enqueues task, incrementing the pending counter until it runs.
// When the queue is full, behavior follows the configured OverflowStrategy.
func (s *Scheduler) Submit(task func()) {
	select {
	case s.tasks <- task:
		atomic.AddInt64(&s.pending, 1)
		return
	default:
	}

	switch s.strategy {
	case StrategyDrop:
		atomic.AddInt64(&s.dropped, 1)
	case StrategyBlock:
		atomic.AddInt64(&s.pending, 1)
		if s.blockTimeout <= 0 {
			s.tasks <- task
			return
		}
		select {
		case s.tasks <- task:
		case <-time.After(s.blockTimeout):
			atomic.AddInt64(&s.pending, -1)
			atomic.AddInt64(&s.dropped, 1)
		}
	default: // StrategyExpand
		atomic.AddInt64(&s.pending, 1)
		go func() { s.tasks <- task }()
	}
}

// Pending reports the number of tasks submitted but not yet completed.
func (s *Scheduler) Pending() int64 {
	return atomic.LoadInt64(&s.pending)
}

// Dropped reports the number of tasks discarded under StrategyDrop or a
// timed-out StrategyBlock submission.
func (s *Scheduler) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

// Drain blocks until Pending reaches zero, by submitting a marker task
// and waiting for it to run — every task submitted before Drain is called
// is guaranteed to have completed first, since the worker processes tasks
// strictly in order.
func (s *Scheduler) Drain() {
	done := make(chan struct{})
	// The marker bypasses the overflow strategy: a dropped marker would
	// leave Drain waiting forever.
	atomic.AddInt64(&s.pending, 1)
	s.tasks <- func() { close(done) }
	<-done
}

// Close stops the worker goroutine after all queued tasks complete.
func (s *Scheduler) Close() {
	close(s.tasks)
	<-s.closed
}
