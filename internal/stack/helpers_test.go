package stack

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// fakeClock fires timers only when advanced, on the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and fires every due timer in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Pending returns the number of timers that are neither stopped nor fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// manualLoop queues posted functions until drained by the test.
type manualLoop struct {
	mu    sync.Mutex
	queue []func()
}

func (l *manualLoop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, fn)
}

func (l *manualLoop) Drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}

type fakePanel struct {
	rect    Rect
	content Content
}

type panelMove struct {
	handle   PanelHandle
	rect     Rect
	animated bool
}

// fakeSurface records every panel operation.
type fakeSurface struct {
	screen     Rect
	hasScreen  bool
	failCreate error

	next       PanelHandle
	panels     map[PanelHandle]*fakePanel
	byID       map[ID]PanelHandle
	destroyed  []PanelHandle
	moves      []panelMove
	countdowns map[PanelHandle]time.Duration
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		screen:     Rect{Width: 1920, Height: 1080},
		hasScreen:  true,
		panels:     make(map[PanelHandle]*fakePanel),
		byID:       make(map[ID]PanelHandle),
		countdowns: make(map[PanelHandle]time.Duration),
	}
}

func (s *fakeSurface) Screen() (Rect, bool) {
	return s.screen, s.hasScreen
}

func (s *fakeSurface) CreatePanel(rect Rect, content Content) (PanelHandle, error) {
	if s.failCreate != nil {
		return 0, s.failCreate
	}
	s.next++
	s.panels[s.next] = &fakePanel{rect: rect, content: content}
	s.byID[content.ID] = s.next
	return s.next, nil
}

func (s *fakeSurface) MovePanel(h PanelHandle, rect Rect, animated bool) {
	p, ok := s.panels[h]
	if !ok {
		return
	}
	p.rect = rect
	s.moves = append(s.moves, panelMove{handle: h, rect: rect, animated: animated})
}

func (s *fakeSurface) DestroyPanel(h PanelHandle) {
	if _, ok := s.panels[h]; !ok {
		return
	}
	delete(s.panels, h)
	s.destroyed = append(s.destroyed, h)
}

func (s *fakeSurface) SetCountdown(h PanelHandle, remaining time.Duration, paused bool) {
	if paused {
		s.countdowns[h] = remaining
		return
	}
	delete(s.countdowns, h)
}

func (s *fakeSurface) panelFor(id ID) (*fakePanel, bool) {
	p, ok := s.panels[s.byID[id]]
	return p, ok
}

// recordingHost collects outcomes.
type recordingHost struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (h *recordingHost) ReportOutcome(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, o)
}

func (h *recordingHost) All() []Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Outcome(nil), h.outcomes...)
}

// sequentialIDs returns predictable ids: n1, n2, ...
func sequentialIDs() func() (ID, error) {
	n := 0
	return func() (ID, error) {
		n++
		return ID(fmt.Sprintf("n%d", n)), nil
	}
}

var errCreate = errors.New("create failed")

type fixture struct {
	clock   *fakeClock
	loop    *manualLoop
	surface *fakeSurface
	host    *recordingHost
	sched   *Scheduler
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		clock:   newFakeClock(),
		loop:    &manualLoop{},
		surface: newFakeSurface(),
		host:    &recordingHost{},
	}
	all := append([]Option{
		WithClock(f.clock),
		WithIDGenerator(sequentialIDs()),
	}, opts...)
	f.sched = New(f.surface, f.host, f.loop, all...)
	return f
}

// advance moves time forward and runs whatever the timers posted.
func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.loop.Drain()
}

func testRequest(title string, d time.Duration) Request {
	return Request{
		Title:       title,
		Subtitle:    "body of " + title,
		Duration:    d,
		ActionLabel: "Open",
		ActionKey:   "default",
		Width:       350,
		Height:      100,
	}
}
