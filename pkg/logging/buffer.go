package logging

import (
	"strings"
	"sync"

	"zsembells/pkg/model"
)

// LineCapture is an io.Writer that keeps only the last line written to it.
type LineCapture struct {
	mu   sync.RWMutex
	line string
}

// LatestLog holds the last INFO+ log line for the status API.
var LatestLog = &LineCapture{}

func (c *LineCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line = strings.TrimRight(string(p), "\n")
	return len(p), nil
}

// Last returns the most recent line, or "" if nothing was written.
func (c *LineCapture) Last() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.line
}

// RingCapture remembers the most recent ring line overall and per bell kind,
// so a break bell does not hide when the work bell last rang.
type RingCapture struct {
	mu     sync.RWMutex
	last   string
	byKind map[model.BellKind]string
}

// LatestRings holds the ring lines reported by the status API.
var LatestRings = &RingCapture{}

// Record formats ev and stores the line. It returns the formatted line.
func (c *RingCapture) Record(ev *model.RingEvent) string {
	line := FormatRing(ev)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byKind == nil {
		c.byKind = make(map[model.BellKind]string)
	}
	c.last = line
	c.byKind[ev.Kind] = line
	return line
}

// Last returns the most recent ring line of any kind.
func (c *RingCapture) Last() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// LastFor returns the most recent ring line for kind.
func (c *RingCapture) LastFor(kind model.BellKind) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byKind[kind]
}

// ByKind returns a copy of the per-kind lines keyed by kind name.
func (c *RingCapture) ByKind() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.byKind))
	for k, line := range c.byKind {
		out[string(k)] = line
	}
	return out
}

// Reset forgets every recorded line.
func (c *RingCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = ""
	c.byKind = nil
}
