// Package watcher invalidates cached sections when their fragment files change.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Invalidator drops and, where needed, reloads a section.
type Invalidator interface {
	Invalidate(ctx context.Context, id string) error
}

type InvalidatorFunc func(ctx context.Context, id string) error

func (f InvalidatorFunc) Invalidate(ctx context.Context, id string) error {
	return f(ctx, id)
}

type Config struct {
	// Content directory. Section paths are relative to it.
	Dir string
	// Section id to fragment path.
	Sections map[string]string
	// Quiet period after the last change of a file before it is acted upon.
	Debounce time.Duration
	// Slash-separated doublestar patterns, relative to Dir, to ignore.
	Ignore []string
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type Watcher struct {
	dir      string
	sections map[string][]string
	debounce time.Duration
	ignore   []string
	target   Invalidator
	log      zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(config Config, target Invalidator) (*Watcher, error) {
	if config.Dir == "" {
		return nil, errors.New("a content directory is required")
	}
	for _, pattern := range config.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	w := &Watcher{
		dir:      filepath.Clean(config.Dir),
		sections: make(map[string][]string),
		debounce: config.Debounce,
		ignore:   config.Ignore,
		target:   target,
		log:      logger.With().Str("component", "watcher").Str("dir", config.Dir).Logger(),
		timers:   make(map[string]*time.Timer),
	}
	for id, p := range config.Sections {
		key := sectionKey(p)
		w.sections[key] = append(w.sections[key], id)
	}
	return w, nil
}

// sectionKey normalizes a fragment path to the slash-separated form used
// for lookups, without query or leading slash.
func sectionKey(p string) string {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Run watches the content directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()
	defer w.stopTimers()

	if err := w.addTree(fsw, w.dir); err != nil {
		return err
	}
	w.log.Info().Int("files", len(w.sections)).Msg("Watching content")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("Watch error")
		}
	}
}

// addTree watches root and every directory below it that is not ignored.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.dir && w.dirIgnored(w.rel(p)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) rel(p string) string {
	r, err := filepath.Rel(w.dir, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

func (w *Watcher) ignored(rel string) bool {
	for _, pattern := range w.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// dirIgnored reports whether everything below the directory is ignored.
func (w *Watcher) dirIgnored(rel string) bool {
	return w.ignored(rel) || w.ignored(rel+"/_")
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	rel := w.rel(event.Name)
	if w.ignored(rel) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.log.Warn().Err(err).Str("path", rel).Msg("Could not watch new directory")
			}
			return
		}
	}

	ids, ok := w.sections[rel]
	if !ok {
		return
	}
	w.log.Debug().Str("path", rel).Str("op", event.Op.String()).Msg("Fragment changed")
	for _, id := range ids {
		w.schedule(ctx, id)
	}
}

// schedule invalidates id once no change has been seen for the debounce period.
func (w *Watcher) schedule(ctx context.Context, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.timers[id] == t {
			delete(w.timers, id)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.log.Info().Str("section", id).Msg("Invalidating changed section")
		if err := w.target.Invalidate(ctx, id); err != nil {
			w.log.Error().Err(err).Str("section", id).Msg("Could not invalidate section")
		}
	})
	w.timers[id] = t
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}
