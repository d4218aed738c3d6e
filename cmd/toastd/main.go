// Package main is the entry point for the toastd notification daemon.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/config"
)

const (
	appID   = "io.github.jmylchreest.toastd"
	appName = "toastd"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var globalOpts struct {
	verbose    bool
	configPath string
	announce   bool
}

var rootCmd = &cobra.Command{
	Use:   "toastd",
	Short: "Stacking toast notification daemon for Wayland desktops",
	Long: `toastd owns org.freedesktop.Notifications on the session bus and shows
each notification as a toast panel in a stack anchored to a screen corner.

New toasts enter at the top of the stack and older ones shift down. When the
stack is full the oldest toast is removed silently. Every toast reports
exactly one outcome back to the sending application.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogger()

		cfg, err := config.Load(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runDaemon(cfg, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/toastd/toastd.toml)")
	rootCmd.Flags().BoolVar(&globalOpts.announce, "announce", false,
		"Show a notification once the daemon is ready")
}

// setupLogger configures the global slog logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "toastd:", err)
		os.Exit(1)
	}
}
