package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	sectionviewer "github.com/always-cache/section-viewer"
	"github.com/always-cache/section-viewer/internal/config"
	"github.com/always-cache/section-viewer/loader"
	"github.com/always-cache/section-viewer/store"

	"github.com/rs/zerolog"
)

// originClient does not follow redirects; a redirect is reported as a
// failed retrieval.
var originClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func newFetcher(cfg *config.Config) (loader.Fetcher, error) {
	var fetcher loader.Fetcher
	switch {
	case cfg.Content.Origin != "":
		originUrl, err := url.Parse(cfg.Content.Origin)
		if err != nil {
			return nil, fmt.Errorf("could not parse origin url: %w", err)
		}
		fetcher = loader.NewHTTPFetcher(*originUrl, originClient)
	case cfg.Content.Dir != "":
		fetcher = loader.NewDirFetcher(cfg.Content.Dir)
	default:
		return nil, fmt.Errorf("no content source configured")
	}
	if cfg.Content.Markdown {
		fetcher = loader.NewMarkdownFetcher(fetcher)
	}
	return fetcher, nil
}

// newStore returns the session store and a closer releasing it.
func newStore(cfg *config.Config) (store.Store, io.Closer, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := store.NewSQLiteStore()
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreMemory, "":
		return store.NewMemStore(), io.NopCloser(nil), nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// buildViewer wires a viewer from a validated config. The returned cleanup
// closes the viewer and its store.
func buildViewer(cfg *config.Config, logger *zerolog.Logger) (*sectionviewer.Viewer, func(), error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, nil, err
	}
	sessionStore, storeCloser, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	sections := make([]sectionviewer.Section, len(cfg.Sections))
	for i, s := range cfg.Sections {
		sections[i] = sectionviewer.Section{ID: s.ID, Path: s.Path, Title: s.Title, Group: s.Group}
	}

	viewer, err := sectionviewer.CreateViewer(sectionviewer.Config{
		Sections:             sections,
		Fetcher:              fetcher,
		Store:                sessionStore,
		FetchTimeout:         cfg.FetchTimeout,
		CacheBustParam:       cfg.CacheBustParam,
		DefaultSection:       cfg.DefaultSection,
		Preload:              cfg.Preload,
		EnablePreload:        cfg.EnablePreload,
		ShowLoadingIndicator: cfg.ShowLoadingIndicator,
		Logger:               logger,
	})
	if err != nil {
		storeCloser.Close()
		return nil, nil, err
	}
	cleanup := func() {
		viewer.Close()
		if err := storeCloser.Close(); err != nil {
			logger.Warn().Err(err).Msg("Could not close session store")
		}
	}
	return viewer, cleanup, nil
}

// sectionPaths maps section ids to fragment paths for the watcher.
func sectionPaths(cfg *config.Config) map[string]string {
	paths := make(map[string]string, len(cfg.Sections))
	for _, s := range cfg.Sections {
		paths[s.ID] = s.Path
	}
	return paths
}
