package navigation

import "sync"

// Element is a navigable entry in the sidebar.
type Element interface {
	SectionID() string
	SetActive(active bool)
}

// Item is the stock Element.
type Item struct {
	ID    string
	Title string
	Group string

	mu     sync.Mutex
	active bool
}

func NewItem(id, title, group string) *Item {
	return &Item{ID: id, Title: title, Group: group}
}

func (i *Item) SectionID() string {
	return i.ID
}

func (i *Item) SetActive(active bool) {
	i.mu.Lock()
	i.active = active
	i.mu.Unlock()
}

func (i *Item) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// ItemState is a snapshot of one nav entry.
type ItemState struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}
