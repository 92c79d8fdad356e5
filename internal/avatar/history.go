package avatar

import (
	"sync"
	"time"
)

// Line is one dialogue line
type Line struct {
	Text   string
	IsUser bool
	At     time.Time
}

// History is an in-memory, bounded conversation log. The oldest line is
// dropped once the limit is reached. Nothing is persisted.
type History struct {
	mu    sync.RWMutex
	limit int
	lines []Line
}

// NewHistory creates a history keeping at most limit lines
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 100
	}
	return &History{limit: limit}
}

// Append adds a line, evicting the oldest when full
func (h *History) Append(line Line) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.lines) == h.limit {
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:len(h.lines)-1]
	}
	h.lines = append(h.lines, line)
}

// Lines returns a copy of the history, oldest first
func (h *History) Lines() []Line {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Line(nil), h.lines...)
}

// Len returns the number of stored lines
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lines)
}
