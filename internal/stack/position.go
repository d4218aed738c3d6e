package stack

import "fmt"

// Rect is an absolute on-screen rectangle in surface units.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Size is a panel's fixed width and height.
type Size struct {
	Width  float64
	Height float64
}

// Anchor is the screen corner or edge the stack grows from.
type Anchor string

const (
	AnchorTopLeft      Anchor = "top-left"
	AnchorTopRight     Anchor = "top-right"
	AnchorTopCenter    Anchor = "top-center"
	AnchorBottomLeft   Anchor = "bottom-left"
	AnchorBottomRight  Anchor = "bottom-right"
	AnchorBottomCenter Anchor = "bottom-center"
)

// ValidAnchors returns all valid anchor values.
func ValidAnchors() []Anchor {
	return []Anchor{
		AnchorTopLeft,
		AnchorTopRight,
		AnchorTopCenter,
		AnchorBottomLeft,
		AnchorBottomRight,
		AnchorBottomCenter,
	}
}

// ParseAnchor converts a config value into an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	for _, a := range ValidAnchors() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("invalid position %q, must be one of: %v", s, ValidAnchors())
}

// IsBottom returns true if the stack grows upward from the bottom edge.
func (a Anchor) IsBottom() bool {
	switch a {
	case AnchorBottomLeft, AnchorBottomRight, AnchorBottomCenter:
		return true
	default:
		return false
	}
}

// Geometry holds the layout policy shared by every slot.
type Geometry struct {
	Anchor  Anchor
	MarginX float64 // distance from the anchored vertical screen edge
	MarginY float64 // distance of slot 0 from the anchored horizontal screen edge
	Spacing float64 // vertical gap between stacked panels
}

// DefaultGeometry anchors the stack top-right with the daemon's default margins.
func DefaultGeometry() Geometry {
	return Geometry{
		Anchor:  AnchorTopRight,
		MarginX: 10,
		MarginY: 10,
		Spacing: 5,
	}
}

// Position returns the rectangle for a panel at the given slot. preceding holds
// the heights of the panels at slots 0..slot-1 in current stack order; entries
// past slot are ignored.
//
// A screen with no area yields a rectangle at the screen origin offset only
// vertically, so callers never divide by or anchor against a missing display.
func Position(slot int, width, height float64, preceding []float64, screen Rect, geom Geometry) Rect {
	if slot < len(preceding) {
		preceding = preceding[:slot]
	}
	offset := geom.MarginY
	for _, h := range preceding {
		offset += h + geom.Spacing
	}
	return place(offset, width, height, screen, geom)
}

// Layout computes every slot's rectangle from scratch in one pass. The result
// is identical to calling Position for each slot.
func Layout(sizes []Size, screen Rect, geom Geometry) []Rect {
	rects := make([]Rect, len(sizes))
	offset := geom.MarginY
	for i, s := range sizes {
		rects[i] = place(offset, s.Width, s.Height, screen, geom)
		offset += s.Height + geom.Spacing
	}
	return rects
}

// place anchors a panel whose near edge is offset away from the anchored edge.
func place(offset, width, height float64, screen Rect, geom Geometry) Rect {
	r := Rect{Width: width, Height: height}

	if screen.Empty() {
		r.X = screen.X
		r.Y = screen.Y + offset
		return r
	}

	switch geom.Anchor {
	case AnchorTopLeft, AnchorBottomLeft:
		r.X = screen.X + geom.MarginX
	case AnchorTopCenter, AnchorBottomCenter:
		r.X = screen.X + (screen.Width-width)/2
	default:
		r.X = screen.X + screen.Width - geom.MarginX - width
	}

	if geom.Anchor.IsBottom() {
		r.Y = screen.Y + screen.Height - offset - height
	} else {
		r.Y = screen.Y + offset
	}
	return r
}

// EntranceRect returns where a new panel starts before animating to target.
func EntranceRect(target Rect, anim Animation, screen Rect) Rect {
	start := target
	switch anim {
	case AnimationSlideRight:
		if screen.Empty() {
			start.X = target.X + target.Width
		} else {
			start.X = screen.X + screen.Width
		}
	case AnimationSlideTop:
		start.Y = screen.Y - target.Height
	}
	return start
}
