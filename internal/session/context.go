// Package session runs a match and publishes what happens in it to the
// recording pipeline.
package session

import (
	"log/slog"
	"sync"

	"github.com/onthepitch/matchsim/pkg/core"
)

// Context holds the match being recorded and its live clock
type Context struct {
	mu          sync.RWMutex
	match       *core.Match
	active      bool
	iteration   int
	matchTimeMS int
	phase       string
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		match: &core.Match{Name: "No match loaded"},
		phase: "none",
	}
}

// GetMatch returns the current match
func (c *Context) GetMatch() *core.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.match
}

// SetMatch sets the current match and marks it active
func (c *Context) SetMatch(m *core.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match = m
	c.active = true
	c.iteration = 0
	c.matchTimeMS = 0
}

// EndMatch marks the current match finished. The match stays readable.
func (c *Context) EndMatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
}

// Active reports whether a match is being recorded.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Update stores the clock after a step.
func (c *Context) Update(iteration, matchTimeMS int, phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iteration = iteration
	c.matchTimeMS = matchTimeMS
	c.phase = phase
}

// Clock returns the values last passed to Update.
func (c *Context) Clock() (iteration, matchTimeMS int, phase string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iteration, c.matchTimeMS, c.phase
}

// LogAttrs is a logging.ContextProvider: every record logged while a match
// runs carries its clock.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.active {
		return nil
	}
	return []slog.Attr{
		slog.Int("iteration", c.iteration),
		slog.Int("matchTimeMS", c.matchTimeMS),
		slog.String("phase", c.phase),
	}
}
