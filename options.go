package engine

import (
	"time"

	"github.com/jsonstream/engine/internal/logger"
	"github.com/jsonstream/engine/internal/runtime"
)

// Config holds the tunables a QueryEngine is built with (spec §5, ambient
// config concern). Every field has a usable default filled in by
// defaultConfig.
type Config struct {
	// SchedulerCapacity bounds the task queue every flow's Summarize
	// scheduler is given (spec §4.4, §4.8).
	SchedulerCapacity int
	// OverflowStrategy configures what a flow's scheduler does when that
	// queue is full (spec's Supplemented Features "Overflow strategy").
	OverflowStrategy runtime.OverflowStrategy
	// BlockTimeout is only consulted when OverflowStrategy is
	// runtime.StrategyBlock; zero blocks indefinitely.
	BlockTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		SchedulerCapacity: 256,
		OverflowStrategy:  runtime.StrategyExpand,
	}
}

// Option configures a QueryEngine at construction time.
type Option func(*Engine)

// WithLogger installs a custom diagnostic logger in place of the package
// default (spec §2 ambient logging).
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithLogLevel adjusts the engine's logger's severity threshold.
func WithLogLevel(level logger.Level) Option {
	return func(e *Engine) { e.log.SetLevel(level) }
}

// WithDiscardLog silences engine diagnostics entirely.
func WithDiscardLog() Option {
	return func(e *Engine) { e.log = logger.NewDiscard() }
}

// WithSchedulerCapacity sets the per-flow scheduler queue capacity.
func WithSchedulerCapacity(capacity int) Option {
	return func(e *Engine) { e.config.SchedulerCapacity = capacity }
}

// WithOverflowStrategy selects what a flow's scheduler does when its queue
// fills: expand (spawn a holding goroutine), drop, or block.
func WithOverflowStrategy(strategy runtime.OverflowStrategy, blockTimeout time.Duration) Option {
	return func(e *Engine) {
		e.config.OverflowStrategy = strategy
		e.config.BlockTimeout = blockTimeout
	}
}

// WithDropStrategy discards documents rather than let a backed-up
// Summarize grow unbounded.
func WithDropStrategy() Option {
	return WithOverflowStrategy(runtime.StrategyDrop, 0)
}

// WithBlockStrategy applies backpressure to the inserting caller instead of
// dropping or expanding; timeout <= 0 blocks indefinitely.
func WithBlockStrategy(timeout time.Duration) Option {
	return WithOverflowStrategy(runtime.StrategyBlock, timeout)
}

// WithExpandStrategy restores the default expand-on-overflow behavior.
func WithExpandStrategy() Option {
	return WithOverflowStrategy(runtime.StrategyExpand, 0)
}
