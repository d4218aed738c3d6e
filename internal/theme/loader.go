package theme

import (
	"log/slog"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// Loader owns the CSS provider installed on the display. Use it from the GTK main thread.
type Loader struct {
	logger   *slog.Logger
	provider *gtk.CSSProvider
	dir      string
	current  *Theme
	applied  bool
}

// NewLoader creates a loader that looks for user themes in dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger,
		provider: gtk.NewCSSProvider(),
		dir:      dir,
	}
}

// Load resolves name and swaps the provider's stylesheet. An unknown theme
// falls back to the default one and the resolution error is returned.
func (l *Loader) Load(name string) error {
	t, err := Resolve(name, l.dir)
	if err != nil {
		l.logger.Warn("theme not found, using default", "theme", name, "error", err)
		fallback, ferr := Resolve(DefaultName, "")
		if ferr != nil {
			return ferr
		}
		t = fallback
	}

	l.provider.LoadFromString(t.CSS)
	l.current = t
	l.logger.Info("loaded theme", "name", t.Name, "bundled", t.Bundled, "path", t.Path)
	return err
}

// Reload re-reads the current theme, picking up edits to user files.
func (l *Loader) Reload() error {
	name := DefaultName
	if l.current != nil {
		name = l.current.Name
	}
	return l.Load(name)
}

// Apply installs the provider on display, or the default display when nil.
func (l *Loader) Apply(display *gdk.Display) {
	if l.applied {
		return
	}
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.applied = true
}

// Current returns the loaded theme's name.
func (l *Loader) Current() string {
	if l.current == nil {
		return ""
	}
	return l.current.Name
}
