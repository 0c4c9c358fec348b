// Package navigation tracks the current section and drives content
// resolution when it changes.
package navigation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultSection is the section shown when nothing else is requested.
const DefaultSection = "home"

// Resolver produces and displays the content for a section.
// The context is cancelled when a newer navigation starts.
type Resolver interface {
	Resolve(ctx context.Context, id string) error
}

type ResolverFunc func(ctx context.Context, id string) error

func (f ResolverFunc) Resolve(ctx context.Context, id string) error {
	return f(ctx, id)
}

// Scroller resets the viewport on navigation.
type Scroller interface {
	ScrollToTop()
}

// Change is the notification sent after a navigation commits.
type Change struct {
	ID         string `json:"id"`
	PreviousID string `json:"previousId"`
}

type Listener func(Change)

type Config struct {
	// Nav entries, fixed for the lifetime of the manager.
	Items []Element
	// Address bar to update. Required.
	Address AddressBar
	// Resolver invoked for every navigation. Required.
	Resolver Resolver
	// Optional viewport.
	Scroller Scroller
	// Initial section. DefaultSection if empty.
	Initial string
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type Manager struct {
	items    []Element
	address  AddressBar
	resolver Resolver
	scroller Scroller
	initial  string
	log      zerolog.Logger

	mu        sync.Mutex
	current   string
	active    string
	cancel    context.CancelFunc
	listeners map[int]Listener
	nextID    int
}

func New(config Config) *Manager {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	initial := config.Initial
	if initial == "" {
		initial = DefaultSection
	}
	return &Manager{
		items:     config.Items,
		address:   config.Address,
		resolver:  config.Resolver,
		scroller:  config.Scroller,
		initial:   initial,
		log:       logger.With().Str("component", "navigation").Logger(),
		current:   initial,
		listeners: make(map[int]Listener),
	}
}

// NavigateTo makes id the current section and resolves its content.
//
// UI state (active item, current id, address) is committed before the
// resolver runs and is not rolled back if it fails. Resolver failures are
// logged, never returned. Listeners are notified once the resolver returns.
func (m *Manager) NavigateTo(ctx context.Context, id string) {
	if id == "" {
		m.log.Warn().Msg("Invalid section ID")
		return
	}
	m.navigate(ctx, id, false)
}

// navigate commits the navigation and runs the resolver. With fromAddress
// the target is read from the address bar and the address is left as is;
// otherwise the address is updated to name id.
func (m *Manager) navigate(ctx context.Context, id string, fromAddress bool) {
	m.mu.Lock()
	if fromAddress {
		id = m.addressSection()
	}
	if m.cancel != nil {
		// last navigation wins
		m.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	previous := m.current
	m.setActive(id)
	m.current = id
	// committed together so the address always names the current section
	if !fromAddress {
		m.updateAddress(id)
	}
	m.mu.Unlock()
	defer cancel()

	if m.scroller != nil {
		m.scroller.ScrollToTop()
	}

	log := m.log.With().Str("section", id).Str("previous", previous).Logger()
	log.Debug().Msg("Navigating")
	if m.resolver != nil {
		if err := m.resolver.Resolve(ctx, id); err != nil {
			log.Error().Err(err).Msg("Error loading content")
		}
	}

	m.notify(Change{ID: id, PreviousID: previous})
}

// setActive must be called with mu held.
func (m *Manager) setActive(id string) {
	m.active = ""
	for _, item := range m.items {
		item.SetActive(false)
	}
	for _, item := range m.items {
		if item.SectionID() == id {
			item.SetActive(true)
			m.active = id
			return
		}
	}
}

// updateAddress must be called with mu held.
func (m *Manager) updateAddress(id string) {
	if m.address == nil {
		return
	}
	if pusher, ok := m.address.(HistoryPusher); ok {
		pusher.PushState("#" + id)
		return
	}
	m.address.Assign("#" + id)
}

// HandlePopState navigates to the section named by the address fragment,
// or to the initial section if there is none.
// The address already names the target, so no entry is pushed.
func (m *Manager) HandlePopState(ctx context.Context) {
	m.navigate(ctx, "", true)
}

// addressSection must be called with mu held.
func (m *Manager) addressSection() string {
	id := ""
	if m.address != nil {
		id = SectionFromFragment(m.address.Fragment())
	}
	if id == "" {
		id = m.initial
	}
	return id
}

func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Initial returns the section used when the address names none.
func (m *Manager) Initial() string {
	return m.initial
}

// Items returns the nav entries in order with their active state.
func (m *Manager) Items() []ItemState {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]ItemState, len(m.items))
	for i, item := range m.items {
		states[i] = ItemState{ID: item.SectionID(), Active: item.SectionID() == m.active}
	}
	return states
}

// Subscribe registers a listener for navigation changes.
// The returned function removes it.
func (m *Manager) Subscribe(listener Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(change Change) {
	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()
	for _, l := range listeners {
		l(change)
	}
}
