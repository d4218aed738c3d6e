package termui

import (
	"cmp"
	"slices"
	"time"

	"github.com/jmylchreest/toastd/internal/stack"
)

// DefaultScreen is the virtual display the demo lays panels out on.
var DefaultScreen = stack.Rect{Width: 1920, Height: 1080}

// Card is one panel as the terminal renders it.
type Card struct {
	Handle  stack.PanelHandle
	Content stack.Content
	Rect    stack.Rect
	Paused  bool

	deadline time.Time
	left     time.Duration
	seq      uint64
}

// Remaining returns the time left on the card's countdown at now.
func (c Card) Remaining(now time.Time) time.Duration {
	if c.Paused {
		return c.left
	}
	return max(c.deadline.Sub(now), 0)
}

// Surface keeps panels in memory for the terminal view. Like every
// stack.Surface it is only used from the loop.
type Surface struct {
	screen stack.Rect
	now    func() time.Time
	next   stack.PanelHandle
	cards  map[stack.PanelHandle]*Card
}

// NewSurface creates a surface for a virtual screen. An empty screen behaves
// like a missing display.
func NewSurface(screen stack.Rect) *Surface {
	return &Surface{
		screen: screen,
		now:    time.Now,
		cards:  make(map[stack.PanelHandle]*Card),
	}
}

// Screen returns the virtual screen.
func (s *Surface) Screen() (stack.Rect, bool) {
	return s.screen, !s.screen.Empty()
}

// CreatePanel records a new card at rect.
func (s *Surface) CreatePanel(rect stack.Rect, content stack.Content) (stack.PanelHandle, error) {
	if s.screen.Empty() {
		return 0, stack.ErrNoDisplay
	}
	s.next++
	s.cards[s.next] = &Card{
		Handle:   s.next,
		Content:  content,
		Rect:     rect,
		deadline: content.Deadline,
		left:     content.Duration,
		seq:      uint64(s.next),
	}
	return s.next, nil
}

// MovePanel places a card at rect. The terminal has no motion, so animated is ignored.
func (s *Surface) MovePanel(h stack.PanelHandle, rect stack.Rect, _ bool) {
	if c, ok := s.cards[h]; ok {
		c.Rect = rect
	}
}

// DestroyPanel removes a card.
func (s *Surface) DestroyPanel(h stack.PanelHandle) {
	delete(s.cards, h)
}

// SetCountdown freezes or restarts a card's countdown.
func (s *Surface) SetCountdown(h stack.PanelHandle, remaining time.Duration, paused bool) {
	c, ok := s.cards[h]
	if !ok {
		return
	}
	c.Paused = paused
	c.left = remaining
	c.deadline = s.now().Add(remaining)
}

// Len returns the number of cards on screen.
func (s *Surface) Len() int {
	return len(s.cards)
}

// Cards returns the cards top to bottom as they sit on the virtual screen.
func (s *Surface) Cards() []Card {
	cards := make([]Card, 0, len(s.cards))
	for _, c := range s.cards {
		cards = append(cards, *c)
	}
	slices.SortFunc(cards, func(a, b Card) int {
		if n := cmp.Compare(a.Rect.Y, b.Rect.Y); n != 0 {
			return n
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return cards
}
