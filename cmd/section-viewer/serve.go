package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/always-cache/section-viewer/internal/config"
	"github.com/always-cache/section-viewer/server"
	"github.com/always-cache/section-viewer/watcher"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	port   int
	origin string
	dir    string
	watch  bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the viewer shell and its API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			changed := make(map[string]bool)
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			flags.apply(cfg, changed)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logCloser, err := setupLogger(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer logCloser.Close()
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&flags.port, "port", config.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&flags.origin, "origin", "", "Content origin URL (overrides content.dir)")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Content directory (overrides content.origin)")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Invalidate sections when their files change")
	cmd.MarkFlagsMutuallyExclusive("origin", "dir")
	return cmd
}

// apply overrides config values with flags given on the command line.
func (f serveFlags) apply(cfg *config.Config, changed map[string]bool) {
	if changed["port"] {
		cfg.Port = f.port
	}
	if changed["origin"] {
		cfg.Content.Origin = f.origin
		cfg.Content.Dir = ""
	}
	if changed["dir"] {
		cfg.Content.Dir = f.dir
		cfg.Content.Origin = ""
	}
	if changed["watch"] {
		cfg.Watch.Enabled = f.watch
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	viewer, cleanup, err := buildViewer(cfg, &log.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := viewer.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing viewer: %w", err)
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		ContentDir:     cfg.Content.Dir,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         &log.Logger,
	}, viewer)

	errs := make(chan error, 2)
	go func() {
		errs <- srv.Start()
	}()

	if cfg.Watch.Enabled {
		w, err := watcher.New(watcher.Config{
			Dir:      cfg.Content.Dir,
			Sections: sectionPaths(cfg),
			Debounce: cfg.Watch.Debounce,
			Ignore:   cfg.Watch.Ignore,
			Logger:   &log.Logger,
		}, watcher.InvalidatorFunc(viewer.Invalidate))
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- fmt.Errorf("watcher: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Graceful shutdown failed")
	}
	return runErr
}
