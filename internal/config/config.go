// Package config handles loading and validating the toastd configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastd/internal/stack"
)

// Default configuration values.
const (
	DefaultPanelWidth  = 350
	DefaultPanelHeight = 100
	DefaultVolume      = 80
	DefaultTheme       = "default"
)

// Config is the configuration for toastd.
// Loaded from ~/.config/toastd/toastd.toml
type Config struct {
	Stack    StackConfig    `toml:"stack"`
	Panel    PanelConfig    `toml:"panel"`
	Timeouts TimeoutConfig  `toml:"timeouts"`
	Behavior BehaviorConfig `toml:"behavior"`
	Audio    AudioConfig    `toml:"audio"`
	Theme    ThemeConfig    `toml:"theme"`
}

// StackConfig controls how many panels are shown and where.
type StackConfig struct {
	MaxVisible int    `toml:"max_visible"` // Oldest panel is evicted beyond this
	Position   string `toml:"position"`    // "top-right", "bottom-left", etc.
	MarginX    int    `toml:"margin_x"`    // Pixels from the anchored vertical edge
	MarginY    int    `toml:"margin_y"`    // Pixels from the anchored horizontal edge
	Spacing    int    `toml:"spacing"`     // Gap between stacked panels
}

// PanelConfig holds the defaults applied to requests that do not set them.
type PanelConfig struct {
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	Animation     string `toml:"animation"` // "slide-right", "slide-top", "fade", "none"
	ShowCountdown bool   `toml:"show_countdown"`
	ActionEffect  string `toml:"action_effect"`  // "invoke", "dismiss", "expire"
	TimeoutEffect string `toml:"timeout_effect"` // "expire", "dismiss", "invoke"
}

// TimeoutConfig contains timeout settings per urgency level.
// Durations can be specified as "5s", "10s", "1m", etc. or as integer milliseconds.
type TimeoutConfig struct {
	Low      Duration `toml:"low"`
	Normal   Duration `toml:"normal"`
	Critical Duration `toml:"critical"` // "0" keeps the panel up for Sticky
	Sticky   Duration `toml:"sticky"`   // Used whenever a resolved timeout is zero
}

// BehaviorConfig contains behavior settings.
type BehaviorConfig struct {
	PauseOnHover          bool `toml:"pause_on_hover"`
	InternalNotifications bool `toml:"internal_notifications"` // Show config reload/errors as panels
}

// AudioConfig contains the admission chime settings.
type AudioConfig struct {
	Enabled bool   `toml:"enabled"`
	Volume  int    `toml:"volume"` // 0-100
	Sound   string `toml:"sound"`  // Sound file, ~ is expanded
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	geom := stack.DefaultGeometry()
	return &Config{
		Stack: StackConfig{
			MaxVisible: stack.DefaultMaxVisible,
			Position:   string(geom.Anchor),
			MarginX:    int(geom.MarginX),
			MarginY:    int(geom.MarginY),
			Spacing:    int(geom.Spacing),
		},
		Panel: PanelConfig{
			Width:         DefaultPanelWidth,
			Height:        DefaultPanelHeight,
			Animation:     string(stack.AnimationSlideRight),
			ShowCountdown: true,
			ActionEffect:  "invoke",
			TimeoutEffect: "expire",
		},
		Timeouts: TimeoutConfig{
			Low:      Duration(5 * time.Second),
			Normal:   Duration(10 * time.Second),
			Critical: Duration(0),
			Sticky:   Duration(time.Hour),
		},
		Behavior: BehaviorConfig{
			PauseOnHover:          true,
			InternalNotifications: true,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  DefaultVolume,
		},
		Theme: ThemeConfig{
			Name:        DefaultTheme,
			ColorScheme: string(ColorSchemeSystem),
		},
	}
}

// Dir returns the toastd config directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toastd")
}

// Path returns the path to the config file.
func Path() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "toastd.toml")
}

// Load reads the configuration at path, or Path() when path is empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, or Path() when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := stack.ParseAnchor(c.Stack.Position); err != nil {
		return err
	}
	if c.Stack.MaxVisible < 1 || c.Stack.MaxVisible > 20 {
		return fmt.Errorf("max_visible must be between 1 and 20, got %d", c.Stack.MaxVisible)
	}
	if c.Stack.MarginX < 0 || c.Stack.MarginY < 0 || c.Stack.Spacing < 0 {
		return fmt.Errorf("margins and spacing must not be negative")
	}

	if c.Panel.Width < 100 || c.Panel.Width > 1000 {
		return fmt.Errorf("width must be between 100 and 1000, got %d", c.Panel.Width)
	}
	if c.Panel.Height < 20 || c.Panel.Height > 600 {
		return fmt.Errorf("height must be between 20 and 600, got %d", c.Panel.Height)
	}
	if _, err := stack.ParseAnimation(c.Panel.Animation); err != nil {
		return err
	}
	if _, err := stack.ParseEffect(c.Panel.ActionEffect); err != nil {
		return fmt.Errorf("action_effect: %w", err)
	}
	if _, err := stack.ParseEffect(c.Panel.TimeoutEffect); err != nil {
		return fmt.Errorf("timeout_effect: %w", err)
	}

	for name, d := range map[string]Duration{
		"low":      c.Timeouts.Low,
		"normal":   c.Timeouts.Normal,
		"critical": c.Timeouts.Critical,
	} {
		if d < 0 {
			return fmt.Errorf("timeout %s must not be negative, got %s", name, d.Duration())
		}
	}
	if c.Timeouts.Sticky <= 0 {
		return fmt.Errorf("sticky timeout must be positive, got %s", c.Timeouts.Sticky.Duration())
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	validScheme := false
	for _, s := range ValidColorSchemes() {
		if c.Theme.ColorScheme == string(s) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}

	return nil
}

// StackOptions converts the [stack] section into scheduler options.
// The config must have passed Validate.
func (c *Config) StackOptions() stack.Options {
	anchor, err := stack.ParseAnchor(c.Stack.Position)
	if err != nil {
		anchor = stack.AnchorTopRight
	}
	return stack.Options{
		MaxVisible: c.Stack.MaxVisible,
		Geometry: stack.Geometry{
			Anchor:  anchor,
			MarginX: float64(c.Stack.MarginX),
			MarginY: float64(c.Stack.MarginY),
			Spacing: float64(c.Stack.Spacing),
		},
	}
}

// ApplyPanelDefaults fills every unset request field from the [panel] section.
func (c *Config) ApplyPanelDefaults(req *stack.Request) {
	if req.Width <= 0 {
		req.Width = float64(c.Panel.Width)
	}
	if req.Height <= 0 {
		req.Height = float64(c.Panel.Height)
	}
	if req.Animation == "" {
		if anim, err := stack.ParseAnimation(c.Panel.Animation); err == nil {
			req.Animation = anim
		}
	}
	if req.ActionEffect == stack.EffectDefault {
		req.ActionEffect, _ = stack.ParseEffect(c.Panel.ActionEffect)
	}
	if req.TimeoutEffect == stack.EffectDefault {
		req.TimeoutEffect, _ = stack.ParseEffect(c.Panel.TimeoutEffect)
	}
	if req.Duration <= 0 {
		req.Duration = c.TimeoutForUrgency(UrgencyNormal)
	}
}

// Urgency levels as sent in the D-Bus "urgency" hint.
const (
	UrgencyLow      uint8 = 0
	UrgencyNormal   uint8 = 1
	UrgencyCritical uint8 = 2
)

// TimeoutForUrgency returns the display duration for an urgency level.
// A zero timeout resolves to the sticky duration.
func (c *Config) TimeoutForUrgency(urgency uint8) time.Duration {
	var d Duration
	switch urgency {
	case UrgencyLow:
		d = c.Timeouts.Low
	case UrgencyCritical:
		d = c.Timeouts.Critical
	default: // Normal or unknown
		d = c.Timeouts.Normal
	}
	if d <= 0 {
		return c.Timeouts.Sticky.Duration()
	}
	return d.Duration()
}

// SoundPath returns the chime file with ~ expanded.
func (c *Config) SoundPath() string {
	return expandPath(c.Audio.Sound)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
