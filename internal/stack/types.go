package stack

import (
	"errors"
	"fmt"
	"time"
)

// ID identifies a notification instance for its whole lifetime.
type ID string

// Validation and admission errors.
var (
	ErrInvalidRequest = errors.New("invalid notification request")
	ErrNoDisplay      = errors.New("no display surface available")
	ErrUnknownEffect  = errors.New("unknown effect")
	ErrUnknownAnim    = errors.New("unknown animation")
)

// State is the lifecycle state of an instance.
type State int

const (
	// StateDisplayed means the panel is positioned and its timer is armed.
	StateDisplayed State = iota
	// StateClosing means the instance has been claimed by a close path.
	StateClosing
	// StateClosed is terminal.
	StateClosed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateDisplayed:
		return "displayed"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Effect is what the host should do when an instance closes.
type Effect int

const (
	// EffectDefault resolves to EffectInvoke on the action path and
	// EffectExpire on the timeout path.
	EffectDefault Effect = iota
	// EffectDismiss closes the notification without further action.
	EffectDismiss
	// EffectInvoke invokes the notification's primary action.
	EffectInvoke
	// EffectExpire marks the notification as expired.
	EffectExpire
)

// String returns the string representation of Effect.
func (e Effect) String() string {
	switch e {
	case EffectDefault:
		return "default"
	case EffectDismiss:
		return "dismiss"
	case EffectInvoke:
		return "invoke"
	case EffectExpire:
		return "expire"
	default:
		return "unknown"
	}
}

// ParseEffect converts a config or hint value into an Effect.
func ParseEffect(s string) (Effect, error) {
	switch s {
	case "", "default":
		return EffectDefault, nil
	case "dismiss":
		return EffectDismiss, nil
	case "invoke":
		return EffectInvoke, nil
	case "expire":
		return EffectExpire, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEffect, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Effect) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Effect) UnmarshalText(text []byte) error {
	parsed, err := ParseEffect(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Trigger records which path closed an instance.
type Trigger int

const (
	// TriggerUserAction means the user acted on the panel.
	TriggerUserAction Trigger = iota
	// TriggerTimeout means the auto-close timer fired.
	TriggerTimeout
	// TriggerRequest means the host asked for the notification to be closed.
	TriggerRequest
)

// String returns the string representation of Trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerUserAction:
		return "user-action"
	case TriggerTimeout:
		return "timeout"
	case TriggerRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Animation is the entrance style of a new panel.
type Animation string

const (
	AnimationSlideRight Animation = "slide-right"
	AnimationSlideTop   Animation = "slide-top"
	AnimationFade       Animation = "fade"
	AnimationNone       Animation = "none"
)

// ValidAnimations returns all valid animation values.
func ValidAnimations() []Animation {
	return []Animation{AnimationSlideRight, AnimationSlideTop, AnimationFade, AnimationNone}
}

// ParseAnimation converts a config or hint value into an Animation.
func ParseAnimation(s string) (Animation, error) {
	for _, a := range ValidAnimations() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAnim, s)
}

// Request describes a notification to admit. It is not modified by the scheduler.
type Request struct {
	AppName           string        `json:"app_name,omitempty" yaml:"app_name,omitempty"`
	Title             string        `json:"title" yaml:"title"`
	Subtitle          string        `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	SecondarySubtitle string        `json:"secondary_subtitle,omitempty" yaml:"secondary_subtitle,omitempty"`
	Duration          time.Duration `json:"duration" yaml:"duration"`
	ActionLabel       string        `json:"action_label,omitempty" yaml:"action_label,omitempty"`
	ActionKey         string        `json:"action_key,omitempty" yaml:"action_key,omitempty"`
	ActionEffect      Effect        `json:"action_effect" yaml:"action_effect"`
	TimeoutEffect     Effect        `json:"timeout_effect" yaml:"timeout_effect"`
	Width             float64       `json:"width" yaml:"width"`
	Height            float64       `json:"height" yaml:"height"`
	ShowCountdown     bool          `json:"show_countdown" yaml:"show_countdown"`
	Animation         Animation     `json:"animation,omitempty" yaml:"animation,omitempty"`
	Sound             string        `json:"sound,omitempty" yaml:"sound,omitempty"`
	Silent            bool          `json:"silent,omitempty" yaml:"silent,omitempty"`
}

// HasAction reports whether the request carries a primary action.
func (r Request) HasAction() bool {
	return r.ActionLabel != ""
}

// resolvedActionEffect returns the effect reported when the primary action is taken.
func (r Request) resolvedActionEffect() Effect {
	if r.ActionEffect == EffectDefault {
		return EffectInvoke
	}
	return r.ActionEffect
}

// resolvedTimeoutEffect returns the effect reported when the timer fires.
func (r Request) resolvedTimeoutEffect() Effect {
	if r.TimeoutEffect == EffectDefault {
		return EffectExpire
	}
	return r.TimeoutEffect
}

// Validate checks the request can be admitted.
func (r Request) Validate() error {
	if r.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidRequest, r.Duration)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: panel size must be positive, got %vx%v", ErrInvalidRequest, r.Width, r.Height)
	}
	if r.Animation != "" {
		if _, err := ParseAnimation(string(r.Animation)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}

// Outcome is reported to the host exactly once per non-evicted instance.
type Outcome struct {
	ID          ID
	Effect      Effect
	Trigger     Trigger
	ActionTaken bool
	ActionKey   string
}

// Host receives outcomes. Implementations must not block.
type Host interface {
	ReportOutcome(o Outcome)
}

// HostFunc adapts a function to the Host interface.
type HostFunc func(o Outcome)

// ReportOutcome calls f(o).
func (f HostFunc) ReportOutcome(o Outcome) {
	f(o)
}
