// Package server hosts a viewer over HTTP: the shell page, a JSON API the
// shell drives it with, a websocket stream of navigation changes and, when
// configured, the fragment files themselves.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sectionviewer "github.com/always-cache/section-viewer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Config struct {
	Port int
	// Directory served under /content/. Nothing is served if empty.
	ContentDir string
	// Origins allowed to call the API from a browser.
	AllowedOrigins []string
	// Title of the shell page.
	Title string
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type Server struct {
	cfg        Config
	viewer     *sectionviewer.Viewer
	events     *hub
	router     chi.Router
	httpServer *http.Server
	log        zerolog.Logger
}

// New creates a server for the viewer. The viewer should be initialized
// before the server starts accepting requests.
func New(cfg Config, viewer *sectionviewer.Viewer) *Server {
	var logger zerolog.Logger
	if cfg.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *cfg.Logger
	}
	if cfg.Title == "" {
		cfg.Title = "Section Viewer"
	}

	s := &Server{
		cfg:    cfg,
		viewer: viewer,
		log:    logger.With().Str("component", "server").Logger(),
	}
	s.events = newHub(s.log)
	viewer.Subscribe(s.events.broadcast)
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	}))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Cache-Status"},
		MaxAge:         300,
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		corsOpts.AllowedOrigins = s.cfg.AllowedOrigins
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.handleShell)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/navigate/{id}", s.handleNavigate)
		r.Get("/content", s.handleContent)
		r.Get("/fragments/{id}", s.handleFragment)
		r.Post("/history/back", s.handleBack)
		r.Post("/history/forward", s.handleForward)
		r.Post("/keys", s.handleKey)
		r.Delete("/cache", s.handleClearAll)
		r.Delete("/cache/{id}", s.handleClear)
		r.Get("/events", s.handleEvents)
	})

	if s.cfg.ContentDir != "" {
		r.Handle("/content/*", http.FileServer(http.Dir(s.cfg.ContentDir)))
	}

	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("Listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes event streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.events.close()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
