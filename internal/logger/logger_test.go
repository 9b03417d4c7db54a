package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf)
	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	assert.Empty(t, buf.String())

	l.Warn("warn %d", 3)
	assert.Contains(t, buf.String(), "warn 3")
}

func TestSetLevelAdjustsThresholdAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	l := New(ERROR, &buf)
	l.Info("info %d", 1)
	assert.Empty(t, buf.String())

	l.SetLevel(INFO)
	l.Info("info %d", 2)
	assert.Contains(t, buf.String(), "info 2")
}

func TestOffSuppressesEverything(t *testing.T) {
	var buf bytes.Buffer
	l := New(OFF, &buf)
	l.Error("should never appear")
	assert.Empty(t, buf.String())
}

func TestLogLineIncludesLevelTag(t *testing.T) {
	var buf bytes.Buffer
	l := New(DEBUG, &buf)
	l.Error("boom")
	line := buf.String()
	assert.True(t, strings.Contains(line, "[ERROR]"))
}

func TestDiscardLoggerNeverPanics(t *testing.T) {
	l := NewDiscard()
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
		l.SetLevel(DEBUG)
	})
}

func TestDefaultLoggerSwap(t *testing.T) {
	original := GetDefault()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(New(DEBUG, &buf))
	Info("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}
