package display

import (
	"github.com/diamondburned/gotk4/pkg/glib/v2"
)

// GLibLoop runs posted functions on the GTK main loop. It satisfies stack.Loop.
type GLibLoop struct{}

// Post schedules fn as a one-shot idle callback. Safe from any goroutine.
func (GLibLoop) Post(fn func()) {
	glib.IdleAdd(fn)
}
