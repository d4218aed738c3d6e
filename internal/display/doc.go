// Package display renders stack panels as GTK4 layer-shell windows.
// Every exported method must run on the GTK main thread, which is also the
// scheduler's loop (see GLibLoop).
package display
