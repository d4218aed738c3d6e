package display

import (
	"unsafe"

	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/toastd/internal/stack"
)

// primaryMonitor returns the first monitor of the display.
// GTK4 has no notion of a primary monitor, so the first one stands in.
func primaryMonitor(display *gdk.Display) *gdk.Monitor {
	if display == nil {
		return nil
	}
	monitors := display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		return nil
	}
	return wrapMonitor(monitors.Item(0))
}

// wrapMonitor casts a list item to a gdk.Monitor. gotk4 does not export its
// own wrapper, but gdk.Monitor is a struct embedding *coreglib.Object.
func wrapMonitor(obj *coreglib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*coreglib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// monitorRect converts a monitor's logical geometry into a stack rectangle.
func monitorRect(m *gdk.Monitor) stack.Rect {
	g := m.Geometry()
	return stack.Rect{
		X:      float64(g.X()),
		Y:      float64(g.Y()),
		Width:  float64(g.Width()),
		Height: float64(g.Height()),
	}
}
