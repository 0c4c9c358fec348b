package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/always-cache/section-viewer/internal/config"
	"github.com/always-cache/section-viewer/loader"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configFlag); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configFlag)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.ExampleConfig().Write(configFlag); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configFlag)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <id>",
		Short: "Load one section and print its fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			// logs go to stderr so stdout carries only the fragment
			logCloser, err := setupLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logCloser.Close()

			viewer, cleanup, err := buildViewer(cfg, &log.Logger)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return fetchSection(ctx, viewer.Loader(), viewer.Path, args[0], cmd.OutOrStdout())
		},
	}
}

// fetchSection writes the loaded fragment, or its fallback, to out. A
// fallback is also reported as an error.
func fetchSection(ctx context.Context, l *loader.Loader, lookup func(string) (string, bool), id string, out io.Writer) error {
	path, ok := lookup(id)
	if !ok {
		return fmt.Errorf("unknown section %q", id)
	}
	res, err := l.Load(id, path).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Content)
	if res.Status == loader.StatusFallback {
		return fmt.Errorf("retrieving %s: %w", id, res.Err)
	}
	return nil
}
