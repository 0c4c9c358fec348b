package sectionviewer

import "sync"

// Display is the content area sections are rendered into.
type Display interface {
	Render(markup string)
	Content() string
}

// Container is an in-memory Display.
type Container struct {
	mu      sync.RWMutex
	markup  string
	renders int
}

func (c *Container) Render(markup string) {
	c.mu.Lock()
	c.markup = markup
	c.renders++
	c.mu.Unlock()
}

func (c *Container) Content() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.markup
}

// Renders returns how often the container was rendered into.
func (c *Container) Renders() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renders
}
