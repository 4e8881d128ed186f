// Package common holds timing and memory helpers shared by the decoder,
// the batch runner and the benchmarks.
package common

import (
	"log/slog"
	"time"
)

// Timer measures one operation. The first Stop fixes the elapsed time.
type Timer struct {
	name    string
	start   time.Time
	elapsed time.Duration
	stopped bool
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return NewNamedTimer("")
}

// NewNamedTimer starts a timer labelled name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed time. Later calls return
// the same value.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.elapsed = time.Since(t.start)
		t.stopped = true
	}
	return t.elapsed
}

// Elapsed returns the time since the start, or the stopped duration.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.elapsed
	}
	return time.Since(t.start)
}

// Name returns the label, empty for NewTimer.
func (t *Timer) Name() string { return t.name }

// Millis returns Elapsed in fractional milliseconds.
func (t *Timer) Millis() float64 {
	return float64(t.Elapsed().Microseconds()) / 1000
}

// LogValue logs the timer as a group of name and elapsed time.
func (t *Timer) LogValue() slog.Value {
	if t.name == "" {
		return slog.DurationValue(t.Elapsed())
	}
	return slog.GroupValue(
		slog.String("name", t.name),
		slog.Duration("elapsed", t.Elapsed()),
	)
}
