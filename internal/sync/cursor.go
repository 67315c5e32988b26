package sync

import (
	stdsync "sync"
	"time"
)

// Cursor is the forward-only sync position of one client session. The zero
// value starts at epoch.
type Cursor struct {
	mu stdsync.Mutex
	t  time.Time
}

// NewCursor starts a cursor at t.
func NewCursor(t time.Time) *Cursor {
	return &Cursor{t: t}
}

// Get returns the current position.
func (c *Cursor) Get() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the cursor to t if t is later. It reports whether it moved.
func (c *Cursor) Advance(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.After(c.t) {
		return false
	}
	c.t = t
	return true
}
