// Package loader retrieves, caches and deduplicates content fragments.
//
// A Loader owns two maps: the session cache (section id to fragment) and the
// in-flight table (section id to pending Future). Both are only ever touched by
// the loader's own goroutine; public methods and retrieval completions are sent
// to it as messages. This gives every section id a single writer and keeps the
// invariant that an id is never both cached and in flight.
package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	cachebuster "github.com/always-cache/section-viewer/pkg/cache-buster"
	"github.com/always-cache/section-viewer/store"

	"github.com/rs/zerolog"
)

// DefaultFetchTimeout bounds every retrieval unless configured otherwise.
const DefaultFetchTimeout = 30 * time.Second

// ErrClosed is the failure behind loads that were outstanding when, or
// issued after, the loader was closed.
var ErrClosed = errors.New("loader closed")

type Config struct {
	// Source of fragments. Required.
	Fetcher Fetcher
	// Storage for the session cache. A MemStore is used if nil.
	Store store.Store
	// Appends the uniqueness token to retrieval paths.
	// The zero value uses the "v" query parameter and xid tokens.
	Buster cachebuster.Buster
	// Upper bound for a single retrieval. DefaultFetchTimeout if zero.
	FetchTimeout time.Duration
	// Renders the fragment used when a retrieval fails.
	// FallbackFragment is used if nil.
	Fallback func(id string, err error) string
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// Entry names a section to preload.
type Entry struct {
	ID   string
	Path string
}

type Loader struct {
	fetcher      Fetcher
	store        store.Store
	buster       cachebuster.Buster
	fetchTimeout time.Duration
	fallback     func(string, error) string
	log          zerolog.Logger

	ops       chan func()
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by the loop goroutine
	inFlight      map[string]*Future
	fetchCtx      context.Context
	cancelFetches context.CancelFunc
}

// New creates a loader and starts its owner goroutine.
// Call Close to stop it.
func New(config Config) *Loader {
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	l := &Loader{
		fetcher:      config.Fetcher,
		store:        config.Store,
		buster:       config.Buster,
		fetchTimeout: config.FetchTimeout,
		fallback:     config.Fallback,
		log:          logger.With().Str("component", "loader").Logger(),
		ops:          make(chan func()),
		quit:         make(chan struct{}),
		stopped:      make(chan struct{}),
		inFlight:     make(map[string]*Future),
	}
	if l.store == nil {
		l.store = store.NewMemStore()
	}
	if l.buster.Param == "" && l.buster.Token == nil {
		l.buster = cachebuster.NewBuster("")
	}
	if l.fetchTimeout <= 0 {
		l.fetchTimeout = DefaultFetchTimeout
	}
	if l.fallback == nil {
		l.fallback = FallbackFragment
	}
	l.fetchCtx, l.cancelFetches = context.WithCancel(context.Background())

	go l.run()
	return l
}

func (l *Loader) run() {
	defer close(l.stopped)
	for {
		select {
		case op := <-l.ops:
			op()
		case <-l.quit:
			l.shutdown()
			return
		}
	}
}

// do runs op on the owner goroutine and waits for it.
// It reports false if the loader has stopped.
func (l *Loader) do(op func()) bool {
	done := make(chan struct{})
	select {
	case l.ops <- func() { op(); close(done) }:
		<-done
		return true
	case <-l.stopped:
		return false
	}
}

// Load returns the fragment for the section id, retrieving it from path if
// it is not cached. Concurrent loads of the same id share one retrieval and
// one Future. The Future always settles; failures produce fallback results.
func (l *Loader) Load(id, path string) *Future {
	var f *Future
	if !l.do(func() { f = l.load(id, path) }) {
		return resolvedFuture(l.fallbackResult(id, ErrClosed))
	}
	return f
}

func (l *Loader) load(id, path string) *Future {
	log := l.log.With().Str("section", id).Logger()

	if content, ok, err := l.store.Get(id); err != nil {
		log.Error().Err(err).Msg("Could not read from cache")
	} else if ok {
		log.Trace().Msg("Cache hit")
		return resolvedFuture(Result{ID: id, Content: content, Status: StatusHit})
	}

	if f, ok := l.inFlight[id]; ok {
		log.Trace().Msg("Joining outstanding retrieval")
		return f
	}

	f := newFuture()
	l.inFlight[id] = f
	busted, err := l.buster.Append(path)
	if err != nil {
		l.settle(id, f, "", err)
		return f
	}
	token, _ := l.buster.TokenOf(busted)
	log.Debug().Str("path", path).Str("token", token).Msg("Retrieving fragment")
	go l.fetch(id, busted, f)
	return f
}

// fetch runs outside the owner goroutine and reports back to it.
func (l *Loader) fetch(id, path string, f *Future) {
	ctx, cancel := context.WithTimeout(l.fetchCtx, l.fetchTimeout)
	defer cancel()
	content, err := l.fetcher.Fetch(ctx, path)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		// failures name the section's path, not the busted one
		statusErr.Path = l.buster.Strip(statusErr.Path)
	}
	select {
	case l.ops <- func() { l.settle(id, f, content, err) }:
	case <-l.stopped:
		// shutdown already resolved f
	}
}

func (l *Loader) settle(id string, f *Future, content string, err error) {
	if l.inFlight[id] == f {
		delete(l.inFlight, id)
	}
	if err != nil {
		l.log.Warn().Err(err).Str("section", id).Msg("Could not retrieve fragment, using fallback")
		f.resolve(l.fallbackResult(id, err))
		return
	}
	if err := l.store.Put(id, content); err != nil {
		l.log.Error().Err(err).Str("section", id).Msg("Could not write to cache")
	} else {
		l.log.Trace().Str("section", id).Int("bytes", len(content)).Msg("Cache write")
	}
	f.resolve(Result{ID: id, Content: content, Status: StatusFetched})
}

func (l *Loader) fallbackResult(id string, err error) Result {
	return Result{
		ID:      id,
		Content: l.fallback(id, err),
		Status:  StatusFallback,
		Err:     err,
	}
}

func (l *Loader) shutdown() {
	l.cancelFetches()
	for id, f := range l.inFlight {
		delete(l.inFlight, id)
		f.resolve(l.fallbackResult(id, ErrClosed))
	}
	l.log.Debug().Msg("Loader stopped")
}

// Clear removes the cache entry for the section id.
// An outstanding retrieval for the id is left alone and will still store its result.
func (l *Loader) Clear(id string) {
	l.do(func() {
		if err := l.store.Delete(id); err != nil {
			l.log.Error().Err(err).Str("section", id).Msg("Could not clear cache entry")
		}
	})
}

// ClearAll empties the cache. Outstanding retrievals are left alone.
func (l *Loader) ClearAll() {
	l.do(func() {
		if err := l.store.Clear(); err != nil {
			l.log.Error().Err(err).Msg("Could not clear cache")
		}
	})
}

// Cached reports whether the section id is in the cache.
func (l *Loader) Cached(id string) bool {
	var ok bool
	l.do(func() {
		_, ok, _ = l.store.Get(id)
	})
	return ok
}

// InFlight reports whether a retrieval for the section id is outstanding.
func (l *Loader) InFlight(id string) bool {
	var ok bool
	l.do(func() {
		_, ok = l.inFlight[id]
	})
	return ok
}

// Keys returns the cached section ids.
func (l *Loader) Keys() []string {
	var keys []string
	l.do(func() {
		var err error
		if keys, err = l.store.Keys(); err != nil {
			l.log.Error().Err(err).Msg("Could not list cache entries")
		}
	})
	return keys
}

// Preload loads every entry concurrently and waits until all of them settle
// or ctx is done. Results are in entry order. Failed retrievals show up as
// fallback results; the call itself never fails.
func (l *Loader) Preload(ctx context.Context, entries []Entry) []Result {
	futures := make([]*Future, len(entries))
	for i, e := range entries {
		futures[i] = l.Load(e.ID, e.Path)
	}
	results := make([]Result, len(entries))
	for i, f := range futures {
		r, err := f.Wait(ctx)
		if err != nil {
			r = Result{ID: entries[i].ID, Status: StatusPending, Err: err}
		}
		results[i] = r
	}
	return results
}

// Close stops the owner goroutine. Outstanding loads settle with ErrClosed
// fallbacks and running retrievals are cancelled.
func (l *Loader) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
	<-l.stopped
}
