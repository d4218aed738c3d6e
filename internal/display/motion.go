package display

import (
	"math"
	"strings"
	"time"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/stack"
)

const (
	frameInterval = 16 * time.Millisecond
	moveDuration  = 200 * time.Millisecond
	enterDuration = 250 * time.Millisecond
	countdownTick = 100 * time.Millisecond
)

// easeOutCubic maps linear progress in [0,1] onto a decelerating curve.
func easeOutCubic(t float64) float64 {
	t = clamp01(t)
	return 1 - math.Pow(1-t, 3)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// tween interpolates position between two rectangles. Size always comes from
// the target since panels never resize while moving.
func tween(from, to stack.Rect, t float64) stack.Rect {
	e := easeOutCubic(t)
	return stack.Rect{
		X:      from.X + (to.X-from.X)*e,
		Y:      from.Y + (to.Y-from.Y)*e,
		Width:  to.Width,
		Height: to.Height,
	}
}

// margins converts an absolute rectangle into layer-shell left/top margins
// relative to the monitor the window is bound to.
func margins(rect, screen stack.Rect) (left, top int) {
	return int(math.Round(rect.X - screen.X)), int(math.Round(rect.Y - screen.Y))
}

// countdownFraction is the progress bar value for the given remaining time.
func countdownFraction(remaining, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return clamp01(float64(remaining) / float64(total))
}

// panelClasses returns the CSS classes applied to a panel's root box.
func panelClasses(content stack.Content, scheme string) []string {
	classes := []string{"toast-panel", scheme}
	if content.AppName != "" {
		if name := sanitizeClassName(content.AppName); name != "" {
			classes = append(classes, "app-"+name)
		}
	}
	if content.Subtitle != "" {
		classes = append(classes, "has-subtitle")
	}
	if content.SecondarySubtitle != "" {
		classes = append(classes, "has-secondary")
	}
	if content.ActionLabel != "" {
		classes = append(classes, "has-action")
	}
	if content.ShowCountdown {
		classes = append(classes, "has-countdown")
	}
	if content.Animation != "" {
		classes = append(classes, "enter-"+string(content.Animation))
	}
	return classes
}

// schemeClass resolves the configured color scheme to "light" or "dark".
// systemDark is only consulted for the system scheme.
func schemeClass(scheme config.ColorScheme, systemDark func() bool) string {
	switch scheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	}
	if systemDark != nil && systemDark() {
		return "dark"
	}
	return "light"
}

// sanitizeClassName converts a string to a valid CSS class name.
// Runs of separators collapse into one hyphen; other characters are dropped.
func sanitizeClassName(name string) string {
	var b strings.Builder
	pending := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ' || r == '.' || r == '/':
			pending = true
		}
	}
	return b.String()
}
