package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/bookingest/internal/config"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "bookingest",
		Short: "Ingest book PDFs into structured, chapter-level JSON",
		Long: `bookingest turns a manifest of book PDFs into one JSON artifact per book:
chapters and subsections segmented by a language model, with embedded images
extracted and referenced in place.

Every phase writes an artifact and is skipped when that artifact exists, so an
interrupted run picks up where it stopped.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./bookingest.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")

	root.AddCommand(runCmd())
	root.AddCommand(finalizeCmd())
	root.AddCommand(outlineCmd())
	root.AddCommand(initConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the configuration with the given command flags bound to
// their config keys. Flags that were not set leave the key alone.
func loadConfig(cmd *cobra.Command, flags map[string]string) (*config.Config, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	for flag, key := range flags {
		if err := mgr.BindFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, err
		}
	}
	return mgr.Load()
}
