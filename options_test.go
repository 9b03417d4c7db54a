package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jsonstream/engine/internal/logger"
	"github.com/jsonstream/engine/internal/runtime"
)

func TestDefaultConfig(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, 256, e.config.SchedulerCapacity)
	assert.Equal(t, runtime.StrategyExpand, e.config.OverflowStrategy)
}

func TestWithSchedulerCapacity(t *testing.T) {
	e := NewEngine(WithSchedulerCapacity(16))
	assert.Equal(t, 16, e.config.SchedulerCapacity)
}

func TestWithDropStrategy(t *testing.T) {
	e := NewEngine(WithDropStrategy())
	assert.Equal(t, runtime.StrategyDrop, e.config.OverflowStrategy)
}

func TestWithBlockStrategy(t *testing.T) {
	e := NewEngine(WithBlockStrategy(5 * time.Second))
	assert.Equal(t, runtime.StrategyBlock, e.config.OverflowStrategy)
	assert.Equal(t, 5*time.Second, e.config.BlockTimeout)
}

func TestWithExpandStrategy(t *testing.T) {
	e := NewEngine(WithBlockStrategy(time.Second), WithExpandStrategy())
	assert.Equal(t, runtime.StrategyExpand, e.config.OverflowStrategy)
}

func TestWithDiscardLogSilencesOutput(t *testing.T) {
	e := NewEngine(WithDiscardLog())
	require := assert.New(t)
	require.NotNil(e.log)
	// Discard logger accepts any level without panicking.
	e.log.Error("this should not be printed: %d", 1)
}

func TestWithLoggerOverridesDefault(t *testing.T) {
	custom := logger.NewDiscard()
	e := NewEngine(WithLogger(custom))
	assert.Same(t, custom, e.log)
}

func TestWithLogLevelAdjustsInstalledLogger(t *testing.T) {
	// Install a custom logger first so WithLogLevel has something concrete
	// to adjust, then confirm it doesn't panic when applied afterward.
	assert.NotPanics(t, func() {
		NewEngine(WithLogger(logger.New(logger.DEBUG, nil)), WithLogLevel(logger.ERROR))
	})
}
