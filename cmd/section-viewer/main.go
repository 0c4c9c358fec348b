package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/always-cache/section-viewer/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// CLI flags
	configFlag         string
	verbosityDebugFlag bool
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "DEV"
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "section-viewer",
		Short:         "Serve a single-page section viewer with cached, deduplicated fragment loading",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFlag, "config", config.DefaultPath, "path to config file")
	root.PersistentFlags().BoolVarP(&verbosityDebugFlag, "verbose", "v", false, "Verbosity: debug logging")
	root.PersistentFlags().BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	root.PersistentFlags().StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	root.AddCommand(newServeCmd(), newInitCmd(), newFetchCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Exiting")
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment. Flag overrides are
// applied by the caller before validation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if logFilenameFlag != "" {
		cfg.Log.File = logFilenameFlag
	}
	return cfg, nil
}

// setupLogger configures the global logger from the config and verbosity
// flags: console output plus the log file if one is set.
func setupLogger(cfg *config.Config, stdout io.Writer) (io.Closer, error) {
	logLevel, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}
	if verbosityDebugFlag {
		logLevel = zerolog.DebugLevel
	}
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	var closer io.Closer = io.NopCloser(nil)
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: stdout})
	if cfg.Log.File != "" {
		logFileOutput, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file: %w", err)
		}
		logOutputs = append(logOutputs, logFileOutput)
		closer = logFileOutput
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Timestamp().Str("version", getVersion()).Logger()
	return closer, nil
}
