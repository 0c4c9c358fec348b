package sectionviewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/always-cache/section-viewer/loader"
	"github.com/always-cache/section-viewer/navigation"
	cachebuster "github.com/always-cache/section-viewer/pkg/cache-buster"
	"github.com/always-cache/section-viewer/store"

	"github.com/rs/zerolog"
)

var (
	ErrNotInitialized = errors.New("viewer not initialized")
	ErrUnknownSection = errors.New("no content for section")
)

// Section maps a section id to the path of its fragment.
type Section struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Group string `json:"group,omitempty"`
}

type Config struct {
	// Sections in sidebar order.
	Sections []Section
	// Source of fragments.
	Fetcher loader.Fetcher
	// Storage for the session cache. Memory if nil.
	Store store.Store
	// Upper bound for a single retrieval.
	FetchTimeout time.Duration
	// Query parameter carrying the retrieval token. "v" if empty.
	CacheBustParam string
	// Section shown when the address names no known section. "home" if empty.
	DefaultSection string
	// Sections retrieved during Initialize when EnablePreload is set.
	Preload       []string
	EnablePreload bool
	// Show a loading indicator while a section is being retrieved.
	ShowLoadingIndicator bool
	// Address bar. An in-memory History if nil.
	Address navigation.AddressBar
	// Content area. A Container if nil.
	Display Display
	// Optional viewport.
	Scroller navigation.Scroller
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Key is a key press with its modifiers.
type Key struct {
	Name string `json:"key"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}

type Viewer struct {
	sections       []Section
	paths          map[string]string
	defaultSection string
	preload        []string
	enablePreload  bool
	showLoading    bool

	loader  *loader.Loader
	nav     *navigation.Manager
	address navigation.AddressBar
	display Display
	log     zerolog.Logger

	initialized atomic.Bool
	// serializes the current-section check with rendering
	renderMu sync.Mutex
}

// CreateViewer composes the loader and the navigation manager.
// Nothing is retrieved or rendered until Initialize is called.
func CreateViewer(config Config) (*Viewer, error) {
	if config.Fetcher == nil {
		return nil, errors.New("a fetcher is required")
	}

	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	v := &Viewer{
		sections:       config.Sections,
		paths:          make(map[string]string, len(config.Sections)),
		defaultSection: config.DefaultSection,
		preload:        config.Preload,
		enablePreload:  config.EnablePreload,
		showLoading:    config.ShowLoadingIndicator,
		address:        config.Address,
		display:        config.Display,
		log:            logger,
	}
	if v.defaultSection == "" {
		v.defaultSection = navigation.DefaultSection
	}
	if v.address == nil {
		v.address = navigation.NewHistory("")
	}
	if v.display == nil {
		v.display = &Container{}
	}

	elements := make([]navigation.Element, 0, len(config.Sections))
	for _, s := range config.Sections {
		if s.ID == "" {
			return nil, errors.New("section without id")
		}
		if _, ok := v.paths[s.ID]; ok {
			return nil, fmt.Errorf("duplicate section %s", s.ID)
		}
		v.paths[s.ID] = s.Path
		item := navigation.NewItem(s.ID, s.Title, s.Group)
		elements = append(elements, item)
	}

	v.loader = loader.New(loader.Config{
		Fetcher:      config.Fetcher,
		Store:        config.Store,
		FetchTimeout: config.FetchTimeout,
		Buster:       cachebuster.NewBuster(config.CacheBustParam),
		Logger:       &logger,
	})
	v.nav = navigation.New(navigation.Config{
		Items:    elements,
		Address:  v.address,
		Resolver: navigation.ResolverFunc(v.loadAndDisplay),
		Scroller: config.Scroller,
		Initial:  v.defaultSection,
		Logger:   &logger,
	})
	return v, nil
}

// Initialize preloads the configured sections and displays the initial route:
// the section named by the address fragment if it is known, the default
// section otherwise.
func (v *Viewer) Initialize(ctx context.Context) error {
	if v.initialized.Load() {
		return nil
	}
	if v.enablePreload {
		v.preloadSections(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("initializing viewer: %w", err)
	}

	initial := navigation.SectionFromFragment(v.address.Fragment())
	if _, ok := v.paths[initial]; !ok {
		initial = v.defaultSection
	}
	v.nav.NavigateTo(ctx, initial)

	v.initialized.Store(true)
	v.log.Info().Str("section", initial).Int("sections", len(v.sections)).Msg("Viewer initialized")
	return nil
}

func (v *Viewer) preloadSections(ctx context.Context) {
	entries := make([]loader.Entry, 0, len(v.preload))
	for _, id := range v.preload {
		if path, ok := v.paths[id]; ok {
			entries = append(entries, loader.Entry{ID: id, Path: path})
		} else {
			v.log.Warn().Str("section", id).Msg("Not preloading unknown section")
		}
	}
	failed := 0
	for _, r := range v.loader.Preload(ctx, entries) {
		if !r.Stored() {
			failed++
		}
	}
	v.log.Debug().Int("sections", len(entries)).Int("failed", failed).Msg("Content preloaded")
}

// loadAndDisplay is the navigation resolver.
// Only the current section is ever rendered; a superseded navigation stops
// waiting for its content without affecting the shared retrieval.
func (v *Viewer) loadAndDisplay(ctx context.Context, id string) error {
	path, ok := v.paths[id]
	if !ok {
		v.renderIfCurrent(id, ErrorMarkup("No content found for "+id))
		return fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}

	if v.showLoading {
		v.renderIfCurrent(id, LoadingMarkup(id))
	}

	r, err := v.loader.Load(id, path).Wait(ctx)
	if err != nil {
		v.log.Debug().Str("section", id).Err(err).Msg("Navigation superseded")
		return nil
	}
	if v.renderIfCurrent(id, SectionMarkup(id, r.Content)) {
		v.log.Debug().Str("section", id).Str("status", string(r.Status)).Msg("Content displayed")
	}
	return nil
}

func (v *Viewer) renderIfCurrent(id, markup string) bool {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	if v.nav.Current() != id {
		return false
	}
	v.display.Render(markup)
	return true
}

// NavigateTo displays the section. It fails only if the viewer has not been
// initialized; content failures are rendered, not returned.
func (v *Viewer) NavigateTo(ctx context.Context, id string) error {
	if !v.initialized.Load() {
		v.log.Warn().Str("section", id).Msg("Viewer not initialized yet")
		return ErrNotInitialized
	}
	v.nav.NavigateTo(ctx, id)
	return nil
}

func (v *Viewer) CurrentSection() string {
	return v.nav.Current()
}

// ClearCache drops the cached fragment of a section, or of all sections if id is empty.
func (v *Viewer) ClearCache(id string) {
	if id == "" {
		v.ClearAll()
		return
	}
	v.loader.Clear(id)
	v.log.Info().Str("section", id).Msg("Cache cleared")
}

func (v *Viewer) ClearAll() {
	v.loader.ClearAll()
	v.log.Info().Msg("Cache cleared")
}

// ReloadSection retrieves the section again and displays it if it is current.
func (v *Viewer) ReloadSection(ctx context.Context, id string) error {
	v.loader.Clear(id)
	return v.loadAndDisplay(ctx, id)
}

// ClearAndReload empties the cache and reloads the current section.
func (v *Viewer) ClearAndReload(ctx context.Context) error {
	v.ClearAll()
	if err := v.ReloadSection(ctx, v.CurrentSection()); err != nil {
		return fmt.Errorf("reloading after clearing cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached fragment of a section whose source changed,
// reloading it if it is being displayed.
func (v *Viewer) Invalidate(ctx context.Context, id string) error {
	v.loader.Clear(id)
	if !v.initialized.Load() || v.CurrentSection() != id {
		return nil
	}
	return v.loadAndDisplay(ctx, id)
}

// HandleKey handles the keyboard shortcuts. Escape and Ctrl/Meta+Home go to
// the default section. It reports whether the key was handled.
func (v *Viewer) HandleKey(ctx context.Context, key Key) bool {
	switch {
	case key.Name == "Escape":
	case key.Name == "Home" && (key.Ctrl || key.Meta):
	default:
		return false
	}
	if err := v.NavigateTo(ctx, v.defaultSection); err != nil {
		return false
	}
	return true
}

// HandlePopState displays the section named by the address after a history move.
func (v *Viewer) HandlePopState(ctx context.Context) error {
	if !v.initialized.Load() {
		return ErrNotInitialized
	}
	v.nav.HandlePopState(ctx)
	return nil
}

type historyMover interface {
	Back() bool
	Forward() bool
}

// Back moves the address one history entry back and displays it.
// It reports false if there was nothing to go back to.
func (v *Viewer) Back(ctx context.Context) (bool, error) {
	return v.move(ctx, historyMover.Back)
}

// Forward moves the address one history entry forward and displays it.
func (v *Viewer) Forward(ctx context.Context) (bool, error) {
	return v.move(ctx, historyMover.Forward)
}

func (v *Viewer) move(ctx context.Context, step func(historyMover) bool) (bool, error) {
	h, ok := v.address.(historyMover)
	if !ok || !step(h) {
		return false, nil
	}
	return true, v.HandlePopState(ctx)
}

// Subscribe registers a listener for navigation changes.
func (v *Viewer) Subscribe(listener navigation.Listener) func() {
	return v.nav.Subscribe(listener)
}

// Sections returns the configured sections in order.
func (v *Viewer) Sections() []Section {
	return append([]Section(nil), v.sections...)
}

// Path returns the fragment path of a section.
func (v *Viewer) Path(id string) (string, bool) {
	path, ok := v.paths[id]
	return path, ok
}

func (v *Viewer) Initialized() bool {
	return v.initialized.Load()
}

func (v *Viewer) Content() string {
	return v.display.Content()
}

func (v *Viewer) Items() []navigation.ItemState {
	return v.nav.Items()
}

func (v *Viewer) Loader() *loader.Loader {
	return v.loader
}

func (v *Viewer) Navigation() *navigation.Manager {
	return v.nav
}

func (v *Viewer) Address() navigation.AddressBar {
	return v.address
}

// Close stops the loader.
func (v *Viewer) Close() {
	v.loader.Close()
}
