// Package cli implements the waypoint command line interface: a thin
// shell over the record store for saving, listing, searching, and
// inspecting geolocation detections.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/waypoint/internal/kv"
	"github.com/roach88/waypoint/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the waypoint CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "waypoint",
		Short:         "Waypoint - local store for AI geolocation detections",
		Long:          "Waypoint persists geolocation detection records locally, with a durable file backend and an in-memory fallback mirrored into a key-value backup.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path")

	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// logger builds the command logger; verbose lowers the level to debug.
func (o *RootOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// withStore opens the configured store, runs fn, and releases both the
// engine and the backup area.
func (o *RootOptions) withStore(cmd *cobra.Command, fn func(st *store.Store) error) error {
	cfg, err := LoadConfig(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	backup := cfg.backupPath()
	if err := os.MkdirAll(filepath.Dir(backup), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "create backup directory", err)
	}
	area, err := kv.OpenBolt(backup)
	if err != nil {
		return WrapExitError(ExitCommandError, "open backup area", err)
	}
	defer area.Close()

	st := store.New(store.Options{
		Dir:      cfg.Dir,
		FileName: cfg.FileName,
		Backend:  store.Backend(cfg.Backend),
		Area:     area,
		Logger:   o.logger(),
	})
	defer st.Close()

	if err := st.Initialize(cmd.Context()); err != nil {
		return WrapExitError(ExitCommandError, "initialize store", err)
	}
	return fn(st)
}
