package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/stack"
)

var sendOpts struct {
	// Request source
	file string

	// Content
	app       string
	body      string
	secondary string

	// Presentation
	duration  time.Duration
	urgency   string
	width     float64
	height    float64
	animation string
	countdown bool

	// Action
	actionLabel   string
	actionKey     string
	actionEffect  string
	timeoutEffect string

	// Sound
	sound  string
	silent bool

	replaces uint32

	// Outcome
	wait        bool
	waitTimeout time.Duration
	format      string
}

var sendCmd = &cobra.Command{
	Use:   "send [title] [body]",
	Short: "Send a notification",
	Long: `Send a notification and print the id the daemon assigned.

The request can be built from flags or read from a YAML or JSON file
(--file, "-" for stdin). Flags given on the command line override the file.

With --wait, toast blocks until the notification closes and prints its
outcome: the close reason and, when the action was taken, its key.

Examples:
  # Simple notification
  toast send "Build finished" "All checks passed"

  # With an action, waiting for the outcome
  toast send "Deploy ready" --action-label Promote --action-key promote --wait

  # From a request file
  toast send --file deploy.yaml

Request file fields:
  title, subtitle, secondary_subtitle, app_name, duration ("5s"),
  action_label, action_key, action_effect, timeout_effect,
  width, height, show_countdown, animation, sound, silent`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendOpts.file, "file", "f", "",
		"Read the request from a YAML or JSON file (- for stdin)")

	// Content flags
	sendCmd.Flags().StringVar(&sendOpts.app, "app", "toast",
		"Application name")
	sendCmd.Flags().StringVarP(&sendOpts.body, "body", "b", "",
		"Body text")
	sendCmd.Flags().StringVar(&sendOpts.secondary, "secondary", "",
		"Secondary line below the body")

	// Presentation flags
	sendCmd.Flags().DurationVarP(&sendOpts.duration, "duration", "d", 0,
		"Display duration (default: the daemon's timeout for the urgency)")
	sendCmd.Flags().StringVarP(&sendOpts.urgency, "urgency", "u", "",
		"Urgency (low, normal, critical)")
	sendCmd.Flags().Float64Var(&sendOpts.width, "width", 0,
		"Panel width")
	sendCmd.Flags().Float64Var(&sendOpts.height, "height", 0,
		"Panel height")
	sendCmd.Flags().StringVar(&sendOpts.animation, "animation", "",
		"Entrance animation (slide-right, slide-top, fade, none)")
	sendCmd.Flags().BoolVar(&sendOpts.countdown, "countdown", true,
		"Show the countdown bar")

	// Action flags
	sendCmd.Flags().StringVar(&sendOpts.actionLabel, "action-label", "",
		"Label of the primary action button")
	sendCmd.Flags().StringVar(&sendOpts.actionKey, "action-key", "",
		"Key reported when the action is taken (default: \"default\")")
	sendCmd.Flags().StringVar(&sendOpts.actionEffect, "action-effect", "",
		"Effect of the action (invoke, dismiss, expire)")
	sendCmd.Flags().StringVar(&sendOpts.timeoutEffect, "timeout-effect", "",
		"Effect of the timeout (expire, dismiss, invoke)")

	// Sound flags
	sendCmd.Flags().StringVar(&sendOpts.sound, "sound", "",
		"Sound file to play instead of the configured chime")
	sendCmd.Flags().BoolVar(&sendOpts.silent, "silent", false,
		"Do not play any sound")

	sendCmd.Flags().Uint32Var(&sendOpts.replaces, "replaces", 0,
		"Id of a notification to replace")

	// Outcome flags
	sendCmd.Flags().BoolVarP(&sendOpts.wait, "wait", "w", false,
		"Wait for the notification to close and print its outcome")
	sendCmd.Flags().DurationVar(&sendOpts.waitTimeout, "wait-timeout", 0,
		"Give up waiting after this long (0 = no limit)")
	sendCmd.Flags().StringVar(&sendOpts.format, "format", "text",
		"Output format (text, json)")
}

func runSend(cmd *cobra.Command, args []string) error {
	var req stack.Request
	if sendOpts.file != "" {
		var err error
		req, err = readRequestFile(sendOpts.file, cmd.InOrStdin())
		if err != nil {
			return err
		}
	}
	if err := applySendFlags(cmd, args, &req); err != nil {
		return err
	}
	if req.Title == "" {
		return fmt.Errorf("a title is required")
	}

	n := dbus.FromRequest(req)
	n.ReplacesID = sendOpts.replaces
	if sendOpts.urgency != "" {
		u, err := parseUrgency(sendOpts.urgency)
		if err != nil {
			return err
		}
		n.Hints["urgency"] = godbus.MakeVariant(u)
	}

	client, err := dbus.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if sendOpts.wait {
		if err := client.Subscribe(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	id, err := client.Notify(ctx, n)
	cancel()
	if err != nil {
		return err
	}
	logger.Debug("notification sent", "id", id, "title", req.Title)

	if !sendOpts.wait {
		return printResult(cmd.OutOrStdout(), sendResult{ID: id})
	}

	waitCtx := context.Background()
	if sendOpts.waitTimeout > 0 {
		var waitCancel context.CancelFunc
		waitCtx, waitCancel = context.WithTimeout(waitCtx, sendOpts.waitTimeout)
		defer waitCancel()
	}
	ev, err := client.WaitClosed(waitCtx, id)
	if err != nil {
		return fmt.Errorf("waiting for notification %d: %w", id, err)
	}
	return printResult(cmd.OutOrStdout(), sendResult{
		ID:     id,
		Reason: ev.Reason.String(),
		Action: ev.ActionKey,
	})
}

// readRequestFile decodes a request from YAML or JSON. JSON is read by the
// YAML decoder too.
func readRequestFile(path string, stdin io.Reader) (stack.Request, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return stack.Request{}, fmt.Errorf("failed to open request file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var req stack.Request
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return stack.Request{}, fmt.Errorf("request file %s is empty", path)
		}
		return stack.Request{}, fmt.Errorf("failed to parse request file: %w", err)
	}
	return req, nil
}

// applySendFlags overlays positional arguments and explicitly set flags on req.
func applySendFlags(cmd *cobra.Command, args []string, req *stack.Request) error {
	flags := cmd.Flags()

	if len(args) > 0 {
		req.Title = args[0]
	}
	if len(args) > 1 {
		req.Subtitle = args[1]
	}
	if flags.Changed("body") {
		req.Subtitle = sendOpts.body
	}
	if flags.Changed("app") || req.AppName == "" {
		req.AppName = sendOpts.app
	}
	if flags.Changed("secondary") {
		req.SecondarySubtitle = sendOpts.secondary
	}
	if flags.Changed("duration") {
		req.Duration = sendOpts.duration
	}
	if flags.Changed("width") {
		req.Width = sendOpts.width
	}
	if flags.Changed("height") {
		req.Height = sendOpts.height
	}
	if flags.Changed("countdown") || sendOpts.file == "" {
		req.ShowCountdown = sendOpts.countdown
	}
	if flags.Changed("animation") {
		anim, err := stack.ParseAnimation(sendOpts.animation)
		if err != nil {
			return err
		}
		req.Animation = anim
	}
	if flags.Changed("action-label") {
		req.ActionLabel = sendOpts.actionLabel
	}
	if flags.Changed("action-key") {
		req.ActionKey = sendOpts.actionKey
	}
	if flags.Changed("action-effect") {
		e, err := stack.ParseEffect(sendOpts.actionEffect)
		if err != nil {
			return err
		}
		req.ActionEffect = e
	}
	if flags.Changed("timeout-effect") {
		e, err := stack.ParseEffect(sendOpts.timeoutEffect)
		if err != nil {
			return err
		}
		req.TimeoutEffect = e
	}
	if flags.Changed("sound") {
		req.Sound = sendOpts.sound
	}
	if flags.Changed("silent") {
		req.Silent = sendOpts.silent
	}
	return nil
}

func parseUrgency(s string) (byte, error) {
	switch s {
	case "low":
		return config.UrgencyLow, nil
	case "normal":
		return config.UrgencyNormal, nil
	case "critical":
		return config.UrgencyCritical, nil
	default:
		return 0, fmt.Errorf("invalid urgency %q, must be one of: low, normal, critical", s)
	}
}

// sendResult is what send prints.
type sendResult struct {
	ID     uint32 `json:"id"`
	Reason string `json:"reason,omitempty"`
	Action string `json:"action,omitempty"`
}

func printResult(w io.Writer, r sendResult) error {
	if sendOpts.format == "json" {
		enc := json.NewEncoder(w)
		return enc.Encode(r)
	}

	if r.Reason == "" {
		_, err := fmt.Fprintln(w, r.ID)
		return err
	}
	line := fmt.Sprintf("%d %s", r.ID, r.Reason)
	if r.Action != "" {
		line += " " + r.Action
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
