package dbus

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/stack"
)

// ToRequest maps a Notify call onto a stack request, filling anything the
// caller left out from cfg. Malformed toastd hints are rejected.
func (n *DBusNotification) ToRequest(cfg *config.Config) (stack.Request, error) {
	req := stack.Request{
		AppName:           n.AppName,
		Title:             n.Summary,
		Subtitle:          n.Body,
		SecondarySubtitle: n.Secondary(),
		ShowCountdown:     cfg.Panel.ShowCountdown,
	}

	if a, ok := n.PrimaryAction(); ok {
		req.ActionKey = a.Key
		req.ActionLabel = a.Label
	}

	switch {
	case n.ExpireTimeout > 0:
		req.Duration = time.Duration(n.ExpireTimeout) * time.Millisecond
	case n.ExpireTimeout == 0:
		req.Duration = cfg.Timeouts.Sticky.Duration()
	default:
		req.Duration = cfg.TimeoutForUrgency(n.Urgency())
	}

	if w, ok := n.numberHint(HintWidth); ok {
		if w <= 0 {
			return stack.Request{}, fmt.Errorf("%w: hint %s must be positive, got %v", stack.ErrInvalidRequest, HintWidth, w)
		}
		req.Width = w
	}
	if h, ok := n.numberHint(HintHeight); ok {
		if h <= 0 {
			return stack.Request{}, fmt.Errorf("%w: hint %s must be positive, got %v", stack.ErrInvalidRequest, HintHeight, h)
		}
		req.Height = h
	}
	if b, ok := n.boolHint(HintCountdown); ok {
		req.ShowCountdown = b
	}

	if s, ok := n.stringHint(HintAnimation); ok {
		anim, err := stack.ParseAnimation(s)
		if err != nil {
			return stack.Request{}, fmt.Errorf("%w: hint %s: %w", stack.ErrInvalidRequest, HintAnimation, err)
		}
		req.Animation = anim
	}
	if s, ok := n.stringHint(HintActionEffect); ok {
		e, err := stack.ParseEffect(s)
		if err != nil {
			return stack.Request{}, fmt.Errorf("%w: hint %s: %w", stack.ErrInvalidRequest, HintActionEffect, err)
		}
		req.ActionEffect = e
	}
	if s, ok := n.stringHint(HintTimeoutEffect); ok {
		e, err := stack.ParseEffect(s)
		if err != nil {
			return stack.Request{}, fmt.Errorf("%w: hint %s: %w", stack.ErrInvalidRequest, HintTimeoutEffect, err)
		}
		req.TimeoutEffect = e
	}

	if n.SuppressSound() {
		req.Silent = true
	} else {
		req.Sound = n.SoundFile()
	}

	cfg.ApplyPanelDefaults(&req)
	return req, req.Validate()
}

// FromRequest builds the Notify arguments for a request, the inverse of ToRequest.
func FromRequest(req stack.Request) *DBusNotification {
	n := &DBusNotification{
		AppName:       req.AppName,
		Summary:       req.Title,
		Body:          req.Subtitle,
		Hints:         make(map[string]dbus.Variant),
		ExpireTimeout: -1,
	}
	if req.Duration > 0 {
		n.ExpireTimeout = int32(req.Duration.Milliseconds())
	}
	if req.HasAction() {
		key := req.ActionKey
		if key == "" {
			key = "default"
		}
		n.Actions = []string{key, req.ActionLabel}
	}
	if req.SecondarySubtitle != "" {
		n.Hints[HintSecondary] = dbus.MakeVariant(req.SecondarySubtitle)
	}
	if req.Width > 0 {
		n.Hints[HintWidth] = dbus.MakeVariant(req.Width)
	}
	if req.Height > 0 {
		n.Hints[HintHeight] = dbus.MakeVariant(req.Height)
	}
	if req.Animation != "" {
		n.Hints[HintAnimation] = dbus.MakeVariant(string(req.Animation))
	}
	n.Hints[HintCountdown] = dbus.MakeVariant(req.ShowCountdown)
	if req.ActionEffect != stack.EffectDefault {
		n.Hints[HintActionEffect] = dbus.MakeVariant(req.ActionEffect.String())
	}
	if req.TimeoutEffect != stack.EffectDefault {
		n.Hints[HintTimeoutEffect] = dbus.MakeVariant(req.TimeoutEffect.String())
	}
	if req.Sound != "" {
		n.Hints["sound-file"] = dbus.MakeVariant(req.Sound)
	}
	if req.Silent {
		n.Hints["suppress-sound"] = dbus.MakeVariant(true)
	}
	return n
}
