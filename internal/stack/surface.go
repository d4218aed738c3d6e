package stack

import "time"

// PanelHandle identifies a panel created by a Surface.
type PanelHandle uint64

// Content is everything a surface needs to render one panel.
type Content struct {
	ID                ID
	AppName           string
	Title             string
	Subtitle          string
	SecondarySubtitle string
	ActionLabel       string
	ShowCountdown     bool
	Duration          time.Duration
	Deadline          time.Time
	Animation         Animation
	From              Rect // entrance rectangle; equal to the target when not animated
}

// Surface renders panels. All methods are called on the scheduler's loop.
// MovePanel and DestroyPanel must be no-ops for unknown or destroyed handles.
type Surface interface {
	// Screen returns the primary display bounds, or false when no display is available.
	Screen() (Rect, bool)
	CreatePanel(rect Rect, content Content) (PanelHandle, error)
	MovePanel(h PanelHandle, rect Rect, animated bool)
	DestroyPanel(h PanelHandle)
}

// CountdownSurface is implemented by surfaces that render a countdown which
// must follow pause and resume.
type CountdownSurface interface {
	SetCountdown(h PanelHandle, remaining time.Duration, paused bool)
}
