package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/stack"
	"github.com/jmylchreest/toastd/internal/termui"
)

var demoOpts struct {
	logFile string
	width   float64
	height  float64
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the notification stack in the terminal",
	Long: `Run the stack scheduler against a terminal surface, using the [stack]
and [panel] sections of the config. No daemon or Wayland session is needed.

Key bindings:
  n           Show the next sample notification
  N           Show more notifications than the stack holds
  j/k, ↑/↓    Select a notification
  enter/a     Take the selected notification's action
  d/x         Dismiss the selected notification
  p           Pause or resume its countdown
  c           Clear the stack without reporting outcomes
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVar(&demoOpts.logFile, "log-file", "",
		"Write scheduler logs to this file")
	demoCmd.Flags().Float64Var(&demoOpts.width, "screen-width", termui.DefaultScreen.Width,
		"Width of the virtual screen")
	demoCmd.Flags().Float64Var(&demoOpts.height, "screen-height", termui.DefaultScreen.Height,
		"Height of the virtual screen")
}

func runDemo(cmd *cobra.Command, args []string) error {
	opts := termui.RunOptions{
		Config: cfg,
		Screen: stack.Rect{Width: demoOpts.width, Height: demoOpts.height},
	}

	if demoOpts.logFile != "" {
		f, err := os.OpenFile(demoOpts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()

		level := slog.LevelInfo
		if globalOpts.verbose {
			level = slog.LevelDebug
		}
		opts.Logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return termui.Run(opts)
}
