package display

import (
	"log/slog"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Controls receives user interactions on panels. *stack.Scheduler implements it.
type Controls interface {
	Activate(id stack.ID) bool
	Dismiss(id stack.ID) bool
	Pause(id stack.ID)
	Resume(id stack.ID)
}

// Options are the presentation settings that can change at runtime.
type Options struct {
	ColorScheme  config.ColorScheme
	PauseOnHover bool
}

// OptionsFromConfig extracts the display settings from a daemon config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ColorScheme:  config.ColorScheme(cfg.Theme.ColorScheme),
		PauseOnHover: cfg.Behavior.PauseOnHover,
	}
}

// Surface implements stack.Surface and stack.CountdownSurface with GTK windows.
type Surface struct {
	app      *gtk.Application
	logger   *slog.Logger
	controls Controls
	opts     Options

	panels map[stack.PanelHandle]*panel
	next   stack.PanelHandle
}

// NewSurface creates a surface whose windows belong to app.
func NewSurface(app *gtk.Application, opts Options, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		app:    app,
		logger: logger,
		opts:   opts,
		panels: make(map[stack.PanelHandle]*panel),
	}
}

// SetControls connects panel interactions to the scheduler.
func (s *Surface) SetControls(c Controls) {
	s.controls = c
}

// SetOptions applies new presentation settings to panels created from now on.
func (s *Surface) SetOptions(opts Options) {
	s.opts = opts
}

// Screen returns the geometry of the primary monitor.
func (s *Surface) Screen() (stack.Rect, bool) {
	monitor := primaryMonitor(gdk.DisplayGetDefault())
	if monitor == nil {
		return stack.Rect{}, false
	}
	r := monitorRect(monitor)
	return r, !r.Empty()
}

// CreatePanel builds and maps a window for content at rect.
func (s *Surface) CreatePanel(rect stack.Rect, content stack.Content) (stack.PanelHandle, error) {
	display := gdk.DisplayGetDefault()
	if display == nil {
		return 0, &DisplayError{Message: "no display available", Cause: stack.ErrNoDisplay}
	}
	monitor := primaryMonitor(display)
	if monitor == nil {
		return 0, &DisplayError{Message: "no monitor available", Cause: stack.ErrNoDisplay}
	}

	s.next++
	h := s.next
	id := content.ID

	classes := panelClasses(content, schemeClass(s.opts.ColorScheme, systemPrefersDark))
	p := newPanel(s.app, monitor, monitorRect(monitor), rect, content, classes, panelEvents{
		activate: func() { s.later(func(c Controls) { c.Activate(id) }) },
		dismiss:  func() { s.later(func(c Controls) { c.Dismiss(id) }) },
		hover:    func(inside bool) { s.hover(id, inside) },
	})
	s.panels[h] = p

	from := content.From
	if from.Empty() {
		from = rect
	}
	p.show(from, rect, content.Animation)

	s.logger.Debug("panel created", "handle", h, "id", id, "x", rect.X, "y", rect.Y)
	return h, nil
}

// MovePanel moves a live panel, animating when requested.
func (s *Surface) MovePanel(h stack.PanelHandle, rect stack.Rect, animated bool) {
	p, ok := s.panels[h]
	if !ok {
		return
	}
	var d time.Duration
	if animated {
		d = moveDuration
	}
	p.moveTo(rect, d)
}

// DestroyPanel closes the window. Unknown handles are ignored.
func (s *Surface) DestroyPanel(h stack.PanelHandle) {
	p, ok := s.panels[h]
	if !ok {
		return
	}
	delete(s.panels, h)
	p.destroy()
	s.logger.Debug("panel destroyed", "handle", h)
}

// SetCountdown syncs a panel's progress bar with its timer.
func (s *Surface) SetCountdown(h stack.PanelHandle, remaining time.Duration, paused bool) {
	if p, ok := s.panels[h]; ok {
		p.setCountdown(remaining, paused)
	}
}

// Len returns the number of live panels.
func (s *Surface) Len() int {
	return len(s.panels)
}

// later runs fn on the next main loop iteration so a panel is never
// destroyed from inside its own signal handler.
func (s *Surface) later(fn func(c Controls)) {
	if s.controls == nil {
		return
	}
	c := s.controls
	glib.IdleAdd(func() { fn(c) })
}

func (s *Surface) hover(id stack.ID, inside bool) {
	if !s.opts.PauseOnHover || s.controls == nil {
		return
	}
	if inside {
		s.controls.Pause(id)
	} else {
		s.controls.Resume(id)
	}
}

func systemPrefersDark() bool {
	return adw.StyleManagerGetDefault().Dark()
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
