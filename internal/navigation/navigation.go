package navigation

import (
	"sync"
)

// LoginPath is the login entry point forced after an authorization failure
const LoginPath = "/login"

// Navigator moves the client between locations
type Navigator interface {
	// Push adds path to the history stack
	Push(path string)
	// Replace swaps the current location for path without growing the stack
	Replace(path string)
	// Current returns the current location
	Current() string
}

// Change describes one location change
type Change struct {
	From    string
	To      string
	Replace bool
}

// History is an in-process location stack starting at "/"
type History struct {
	mu        sync.Mutex
	entries   []string
	listeners []func(Change)
}

// NewHistory creates a history positioned at start ("/" when empty)
func NewHistory(start string) *History {
	if start == "" {
		start = "/"
	}
	return &History{entries: []string{start}}
}

// OnChange registers fn to be called after every location change
func (h *History) OnChange(fn func(Change)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *History) Push(path string) {
	h.mu.Lock()
	from := h.entries[len(h.entries)-1]
	h.entries = append(h.entries, path)
	listeners := h.listeners
	h.mu.Unlock()

	emit(listeners, Change{From: from, To: path})
}

func (h *History) Replace(path string) {
	h.mu.Lock()
	last := len(h.entries) - 1
	from := h.entries[last]
	h.entries[last] = path
	listeners := h.listeners
	h.mu.Unlock()

	emit(listeners, Change{From: from, To: path, Replace: true})
}

// Back pops the current location. It reports false at the first entry.
func (h *History) Back() bool {
	h.mu.Lock()
	if len(h.entries) == 1 {
		h.mu.Unlock()
		return false
	}
	from := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	to := h.entries[len(h.entries)-1]
	listeners := h.listeners
	h.mu.Unlock()

	emit(listeners, Change{From: from, To: to})
	return true
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Len returns the depth of the stack
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func emit(listeners []func(Change), c Change) {
	for _, fn := range listeners {
		fn(c)
	}
}
