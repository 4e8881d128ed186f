package batch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress reports while a batch runs. Calls may
// come from several workers at once.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnError(current int, err error)
	OnComplete()
}

// NoOpProgressCallback ignores all reports.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnError(int, error)  {}
func (NoOpProgressCallback) OnComplete()         {}

// ConsoleProgressCallback draws a progress bar on a terminal.
type ConsoleProgressCallback struct {
	mu             sync.Mutex
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	lastUpdate     time.Time
	startTime      time.Time
	errors         int
}

// NewConsoleProgressCallback creates a console progress reporter writing to
// writer, or stderr when writer is nil.
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{
		writer:         writer,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

// WithUpdateInterval sets how often the bar is redrawn.
func (c *ConsoleProgressCallback) WithUpdateInterval(interval time.Duration) *ConsoleProgressCallback {
	c.updateInterval = interval
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.errors = 0
	c.draw(0, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current < total && time.Since(c.lastUpdate) < c.updateInterval {
		return
	}
	c.draw(current, total)
}

func (c *ConsoleProgressCallback) OnError(int, error) {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.writer)
}

// draw must be called with mu held.
func (c *ConsoleProgressCallback) draw(current, total int) {
	c.lastUpdate = time.Now()
	filled := 0
	if total > 0 {
		filled = current * c.width / total
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", c.width-filled)
	line := fmt.Sprintf("\r%s[%s] %d/%d", c.prefix, bar, current, total)
	if c.errors > 0 {
		line += fmt.Sprintf(" (%d failed)", c.errors)
	}
	if elapsed := time.Since(c.startTime).Seconds(); current > 0 && elapsed > 0 {
		line += fmt.Sprintf(" %.1f/s", float64(current)/elapsed)
	}
	_, _ = fmt.Fprint(c.writer, line)
}
