package navigation

import (
	"strings"
	"sync"
)

// AddressBar reads and writes the fragment part of the current address.
type AddressBar interface {
	// Fragment returns the current fragment including the leading '#',
	// or "" if there is none.
	Fragment() string
	// Assign sets the fragment.
	Assign(fragment string)
}

// HistoryPusher is implemented by address bars that can add a history
// entry without reloading. It is preferred over Assign when available.
type HistoryPusher interface {
	PushState(fragment string)
}

// History is an in-memory address bar with a back/forward stack.
// The zero value starts with an empty fragment.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
}

// NewHistory creates a history whose first entry is the given fragment.
func NewHistory(fragment string) *History {
	return &History{entries: []string{normalizeFragment(fragment)}}
}

func (h *History) Fragment() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[h.index]
}

// Assign behaves like setting location.hash: a new entry is added unless
// the fragment is already current.
func (h *History) Assign(fragment string) {
	fragment = normalizeFragment(fragment)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 0 && h.entries[h.index] == fragment {
		return
	}
	h.push(fragment)
}

func (h *History) PushState(fragment string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.push(normalizeFragment(fragment))
}

// push drops forward entries, like a browser does.
func (h *History) push(fragment string) {
	if len(h.entries) == 0 {
		h.entries = []string{""}
	}
	h.entries = append(h.entries[:h.index+1], fragment)
	h.index = len(h.entries) - 1
}

// Back moves one entry back. It reports false if there is no previous entry.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward moves one entry forward. It reports false if there is no next entry.
func (h *History) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func normalizeFragment(fragment string) string {
	if fragment == "" || fragment == "#" {
		return ""
	}
	if !strings.HasPrefix(fragment, "#") {
		return "#" + fragment
	}
	return fragment
}

// SectionFromFragment returns the section id named by an address fragment.
func SectionFromFragment(fragment string) string {
	return strings.TrimPrefix(fragment, "#")
}
